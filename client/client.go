// Package client is a storage.DB backed by a remote Tables server.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"github.com/kpfaulkner/featuretables/pkg/rpc"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

const keepaliveInterval = 60 * time.Second

// Client talks to a Tables server. It implements storage.DB so everything
// that runs against a local store also runs against a remote one.
type Client struct {
	conn   *grpc.ClientConn
	client *rpc.TablesClient

	// sessionID is sent with every call so the server can tie requests together.
	sessionID string
}

// NewClient connects to serverAddr. Extra dial options are appended, which
// tests use to dial an in-memory listener.
func NewClient(serverAddr string, extra ...grpc.DialOption) (*Client, error) {

	// insecure for now.
	var opts []grpc.DialOption
	opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                keepaliveInterval,
		PermitWithoutStream: true,
	}))
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		log.Errorf("fail to dial %s: %v", serverAddr, err)
		return nil, fmt.Errorf("dial %s: %w", serverAddr, err)
	}

	c := Client{}
	c.conn = conn
	c.client = rpc.NewTablesClient(conn)
	c.sessionID = uuid.New().String()
	log.Debugf("session %s connecting to %s", c.sessionID, serverAddr)
	return &c, nil
}

// SessionID returns the id sent with each request.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) withSession(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, rpc.SessionHeader, c.sessionID)
}

func (c *Client) Enabled(ctx context.Context) (bool, error) {
	resp, err := c.client.Enabled(c.withSession(ctx), &rpc.Empty{})
	if err != nil {
		return false, rpc.FromStatus(err)
	}
	return resp.Enabled, nil
}

func (c *Client) CreateTable(ctx context.Context, name string) (storage.TableInfo, error) {
	resp, err := c.client.CreateTable(c.withSession(ctx), &rpc.NameRequest{Name: name})
	if err != nil {
		return storage.TableInfo{}, rpc.FromStatus(err)
	}
	return resp.Info, nil
}

func (c *Client) FindTables(ctx context.Context, name string) ([]storage.TableInfo, error) {
	resp, err := c.client.FindTables(c.withSession(ctx), &rpc.NameRequest{Name: name})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if resp.Tables == nil {
		return []storage.TableInfo{}, nil
	}
	return resp.Tables, nil
}

func (c *Client) GetTable(ctx context.Context, id int64) (storage.TableInfo, error) {
	resp, err := c.client.GetTable(c.withSession(ctx), &rpc.TableRequest{ID: id})
	if err != nil {
		return storage.TableInfo{}, rpc.FromStatus(err)
	}
	return resp.Info, nil
}

func (c *Client) DeleteTables(ctx context.Context, ids []int64) error {
	_, err := c.client.DeleteTables(c.withSession(ctx), &rpc.DeleteTablesRequest{IDs: ids})
	return rpc.FromStatus(err)
}

func (c *Client) Initialize(ctx context.Context, id int64, headers []*table.Column) error {
	_, err := c.client.Initialize(c.withSession(ctx), &rpc.InitializeRequest{ID: id, Headers: headers})
	return rpc.FromStatus(err)
}

func (c *Client) Headers(ctx context.Context, id int64) ([]*table.Column, error) {
	resp, err := c.client.Headers(c.withSession(ctx), &rpc.TableRequest{ID: id})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Headers, nil
}

func (c *Client) NumberOfRows(ctx context.Context, id int64) (int64, error) {
	resp, err := c.client.NumberOfRows(c.withSession(ctx), &rpc.TableRequest{ID: id})
	if err != nil {
		return 0, rpc.FromStatus(err)
	}
	return resp.Rows, nil
}

func (c *Client) Read(ctx context.Context, id int64, colNumbers []int, start int64, stop int64) (*table.Data, error) {
	resp, err := c.client.Read(c.withSession(ctx), &rpc.ReadRequest{ID: id, Columns: colNumbers, Start: start, Stop: stop})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Data, nil
}

func (c *Client) ReadCoordinates(ctx context.Context, id int64, rowNumbers []int64) (*table.Data, error) {
	resp, err := c.client.ReadCoordinates(c.withSession(ctx), &rpc.ReadCoordinatesRequest{ID: id, Rows: rowNumbers})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp.Data, nil
}

func (c *Client) GetWhereList(ctx context.Context, id int64, condition string, vars map[string]any, start int64, stop int64) ([]int64, error) {
	resp, err := c.client.GetWhereList(c.withSession(ctx), &rpc.WhereRequest{ID: id, Condition: condition, Vars: vars, Start: start, Stop: stop})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if resp.Rows == nil {
		return []int64{}, nil
	}
	return resp.Rows, nil
}

func (c *Client) AddData(ctx context.Context, id int64, cols []*table.Column) error {
	_, err := c.client.AddData(c.withSession(ctx), &rpc.AddDataRequest{ID: id, Columns: cols})
	return rpc.FromStatus(err)
}

// Close drops the connection. Tables on the server are untouched.
func (c *Client) Close() error {
	return c.conn.Close()
}
