// Package rpc defines the Tables gRPC service: messages, the msgpack codec,
// the service descriptor used by the server and a thin client stub.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "featuretables.Tables"

// SessionHeader is the metadata key carrying the client session id.
const SessionHeader = "x-session-id"

// TablesServer is implemented by the server. It mirrors storage.DB.
type TablesServer interface {
	Enabled(context.Context, *Empty) (*EnabledResponse, error)
	CreateTable(context.Context, *NameRequest) (*TableInfoResponse, error)
	FindTables(context.Context, *NameRequest) (*FindTablesResponse, error)
	GetTable(context.Context, *TableRequest) (*TableInfoResponse, error)
	DeleteTables(context.Context, *DeleteTablesRequest) (*Empty, error)
	Initialize(context.Context, *InitializeRequest) (*Empty, error)
	Headers(context.Context, *TableRequest) (*HeadersResponse, error)
	NumberOfRows(context.Context, *TableRequest) (*NumberOfRowsResponse, error)
	Read(context.Context, *ReadRequest) (*DataResponse, error)
	ReadCoordinates(context.Context, *ReadCoordinatesRequest) (*DataResponse, error)
	GetWhereList(context.Context, *WhereRequest) (*RowsResponse, error)
	AddData(context.Context, *AddDataRequest) (*Empty, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor protoc-gen-go-grpc would generate.
func unary[Req any, Resp any](name string, call func(TablesServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TablesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TablesServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var TablesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TablesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Enabled", TablesServer.Enabled),
		unary("CreateTable", TablesServer.CreateTable),
		unary("FindTables", TablesServer.FindTables),
		unary("GetTable", TablesServer.GetTable),
		unary("DeleteTables", TablesServer.DeleteTables),
		unary("Initialize", TablesServer.Initialize),
		unary("Headers", TablesServer.Headers),
		unary("NumberOfRows", TablesServer.NumberOfRows),
		unary("Read", TablesServer.Read),
		unary("ReadCoordinates", TablesServer.ReadCoordinates),
		unary("GetWhereList", TablesServer.GetWhereList),
		unary("AddData", TablesServer.AddData),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "featuretables",
}

func RegisterTablesServer(s grpc.ServiceRegistrar, srv TablesServer) {
	s.RegisterService(&TablesServiceDesc, srv)
}

// TablesClient is the client stub for the Tables service.
type TablesClient struct {
	cc grpc.ClientConnInterface
}

func NewTablesClient(cc grpc.ClientConnInterface) *TablesClient {
	return &TablesClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TablesClient) Enabled(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*EnabledResponse, error) {
	return invoke[EnabledResponse](ctx, c.cc, "Enabled", in, opts)
}

func (c *TablesClient) CreateTable(ctx context.Context, in *NameRequest, opts ...grpc.CallOption) (*TableInfoResponse, error) {
	return invoke[TableInfoResponse](ctx, c.cc, "CreateTable", in, opts)
}

func (c *TablesClient) FindTables(ctx context.Context, in *NameRequest, opts ...grpc.CallOption) (*FindTablesResponse, error) {
	return invoke[FindTablesResponse](ctx, c.cc, "FindTables", in, opts)
}

func (c *TablesClient) GetTable(ctx context.Context, in *TableRequest, opts ...grpc.CallOption) (*TableInfoResponse, error) {
	return invoke[TableInfoResponse](ctx, c.cc, "GetTable", in, opts)
}

func (c *TablesClient) DeleteTables(ctx context.Context, in *DeleteTablesRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteTables", in, opts)
}

func (c *TablesClient) Initialize(ctx context.Context, in *InitializeRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Initialize", in, opts)
}

func (c *TablesClient) Headers(ctx context.Context, in *TableRequest, opts ...grpc.CallOption) (*HeadersResponse, error) {
	return invoke[HeadersResponse](ctx, c.cc, "Headers", in, opts)
}

func (c *TablesClient) NumberOfRows(ctx context.Context, in *TableRequest, opts ...grpc.CallOption) (*NumberOfRowsResponse, error) {
	return invoke[NumberOfRowsResponse](ctx, c.cc, "NumberOfRows", in, opts)
}

func (c *TablesClient) Read(ctx context.Context, in *ReadRequest, opts ...grpc.CallOption) (*DataResponse, error) {
	return invoke[DataResponse](ctx, c.cc, "Read", in, opts)
}

func (c *TablesClient) ReadCoordinates(ctx context.Context, in *ReadCoordinatesRequest, opts ...grpc.CallOption) (*DataResponse, error) {
	return invoke[DataResponse](ctx, c.cc, "ReadCoordinates", in, opts)
}

func (c *TablesClient) GetWhereList(ctx context.Context, in *WhereRequest, opts ...grpc.CallOption) (*RowsResponse, error) {
	return invoke[RowsResponse](ctx, c.cc, "GetWhereList", in, opts)
}

func (c *TablesClient) AddData(ctx context.Context, in *AddDataRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "AddData", in, opts)
}
