package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/kpfaulkner/featuretables/pkg/rpc"
	"github.com/kpfaulkner/featuretables/pkg/server"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/storage/storagetest"
)

// newTestClient serves a fresh memory store over bufconn. Extra server
// options let a test observe requests.
func newTestClient(t *testing.T, kv storage.KV, opts ...grpc.ServerOption) *Client {
	lis := bufconn.Listen(1 << 20)
	db := storage.NewKVDB(kv)
	ts := server.NewTablesServer(db, nil)
	grpcServer := server.NewGRPCServer(ts, opts...)
	go grpcServer.Serve(lis)

	c, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.Nil(t, err)

	t.Cleanup(func() {
		grpcServer.Stop()
		ts.Stop()
		db.Close()
	})
	return c
}

func TestClientConformance(t *testing.T) {
	storagetest.RunDBTests(t, "Remote", func(t *testing.T) storage.DB {
		return newTestClient(t, storage.NewMemoryKV())
	})
}

func TestClientSendsSession(t *testing.T) {
	var seen []string
	record := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			seen = append(seen, md.Get(rpc.SessionHeader)...)
		}
		return handler(ctx, req)
	}

	c := newTestClient(t, storage.NewMemoryKV(), grpc.UnaryInterceptor(record))
	defer c.Close()

	_, err := c.Enabled(context.Background())
	require.Nil(t, err)
	_, err = c.FindTables(context.Background(), "x")
	require.Nil(t, err)

	assert.Equal(t, []string{c.SessionID(), c.SessionID()}, seen)
}

func TestClientDisabled(t *testing.T) {
	c := newTestClient(t, storage.NewNullKV())
	defer c.Close()

	enabled, err := c.Enabled(context.Background())
	require.Nil(t, err)
	assert.False(t, enabled)

	_, err = c.CreateTable(context.Background(), "t")
	assert.True(t, errors.Is(err, storage.ErrDisabled), "got %v", err)
}
