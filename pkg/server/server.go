package server

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/kpfaulkner/featuretables/pkg/rpc"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

// TablesServer receives gRPC requests from clients and reads/modifies the
// tables in the DB accordingly.
type TablesServer struct {
	db        storage.DB
	processor *Processor
	metrics   *Metrics
}

func NewTablesServer(db storage.DB, metrics *Metrics) *TablesServer {
	s := TablesServer{}
	s.db = db
	s.metrics = metrics
	s.processor = NewProcessor(db, defaultQueueSize)
	if metrics != nil {
		s.processor.onAppend = func(rows int) {
			metrics.RowsAppended.Add(float64(rows))
		}
	}
	return &s
}

// NewGRPCServer creates a grpc.Server with the Tables service registered.
// Every call is logged with its session, and measured when metrics are set.
func NewGRPCServer(s *TablesServer, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{SessionInterceptor}
	if s.metrics != nil {
		interceptors = append(interceptors, s.metrics.UnaryInterceptor)
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	grpcServer := grpc.NewServer(opts...)
	rpc.RegisterTablesServer(grpcServer, s)
	return grpcServer
}

// Stop drains pending appends. The DB is left open.
func (s *TablesServer) Stop() {
	s.processor.Stop()
}

func (s *TablesServer) Enabled(ctx context.Context, _ *rpc.Empty) (*rpc.EnabledResponse, error) {
	enabled, err := s.db.Enabled(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.EnabledResponse{Enabled: enabled}, nil
}

// checkEnabled stops every other call when tables are disabled.
func (s *TablesServer) checkEnabled(ctx context.Context) error {
	enabled, err := s.db.Enabled(ctx)
	if err != nil {
		return rpc.ToStatus(err)
	}
	if !enabled {
		return rpc.ToStatus(storage.ErrDisabled)
	}
	return nil
}

func (s *TablesServer) CreateTable(ctx context.Context, req *rpc.NameRequest) (*rpc.TableInfoResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	info, err := s.db.CreateTable(ctx, req.Name)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	log.Infof("created table %q (%d)", info.Name, info.ID)
	return &rpc.TableInfoResponse{Info: info}, nil
}

func (s *TablesServer) FindTables(ctx context.Context, req *rpc.NameRequest) (*rpc.FindTablesResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	infos, err := s.db.FindTables(ctx, req.Name)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.FindTablesResponse{Tables: infos}, nil
}

func (s *TablesServer) GetTable(ctx context.Context, req *rpc.TableRequest) (*rpc.TableInfoResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	info, err := s.db.GetTable(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.TableInfoResponse{Info: info}, nil
}

func (s *TablesServer) DeleteTables(ctx context.Context, req *rpc.DeleteTablesRequest) (*rpc.Empty, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}

	// let queued appends finish before the rows go away
	for _, id := range req.IDs {
		s.processor.Forget(id)
	}
	if err := s.db.DeleteTables(ctx, req.IDs); err != nil {
		return nil, rpc.ToStatus(err)
	}
	log.Infof("deleted tables %v", req.IDs)
	return &rpc.Empty{}, nil
}

func (s *TablesServer) Initialize(ctx context.Context, req *rpc.InitializeRequest) (*rpc.Empty, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	if err := s.db.Initialize(ctx, req.ID, req.Headers); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}

func (s *TablesServer) Headers(ctx context.Context, req *rpc.TableRequest) (*rpc.HeadersResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	headers, err := s.db.Headers(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.HeadersResponse{Headers: headers}, nil
}

func (s *TablesServer) NumberOfRows(ctx context.Context, req *rpc.TableRequest) (*rpc.NumberOfRowsResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	n, err := s.db.NumberOfRows(ctx, req.ID)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.NumberOfRowsResponse{Rows: n}, nil
}

func (s *TablesServer) Read(ctx context.Context, req *rpc.ReadRequest) (*rpc.DataResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	data, err := s.db.Read(ctx, req.ID, req.Columns, req.Start, req.Stop)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.DataResponse{Data: data}, nil
}

func (s *TablesServer) ReadCoordinates(ctx context.Context, req *rpc.ReadCoordinatesRequest) (*rpc.DataResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	data, err := s.db.ReadCoordinates(ctx, req.ID, req.Rows)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.DataResponse{Data: data}, nil
}

func (s *TablesServer) GetWhereList(ctx context.Context, req *rpc.WhereRequest) (*rpc.RowsResponse, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.GetWhereList(ctx, req.ID, req.Condition, rpc.NormalizeVars(req.Vars), req.Start, req.Stop)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.RowsResponse{Rows: rows}, nil
}

// AddData goes through the processor so appends to a table are serialised.
func (s *TablesServer) AddData(ctx context.Context, req *rpc.AddDataRequest) (*rpc.Empty, error) {
	if err := s.checkEnabled(ctx); err != nil {
		return nil, err
	}
	if err := s.processor.Append(ctx, req.ID, req.Columns); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.Empty{}, nil
}
