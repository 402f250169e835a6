package featuretable

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/kpfaulkner/featuretables/client"
	"github.com/kpfaulkner/featuretables/pkg/server"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	tbl "github.com/kpfaulkner/featuretables/pkg/table"
)

const tableName = "/test.h5"

func localDB(t *testing.T) storage.DB {
	db := storage.NewKVDB(storage.NewMemoryKV())
	t.Cleanup(func() { db.Close() })
	return db
}

func remoteDB(t *testing.T) storage.DB {
	lis := bufconn.Listen(1 << 20)
	db := storage.NewKVDB(storage.NewMemoryKV())
	ts := server.NewTablesServer(db, nil)
	grpcServer := server.NewGRPCServer(ts)
	go grpcServer.Serve(lis)

	c, err := client.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.Nil(t, err)
	t.Cleanup(func() {
		c.Close()
		grpcServer.Stop()
		ts.Stop()
		db.Close()
	})
	return c
}

// forEachDB runs a test against a local store and the same store served
// over gRPC.
func forEachDB(t *testing.T, fn func(t *testing.T, fc *FeatureTableConnection)) {
	for name, factory := range map[string]func(t *testing.T) storage.DB{
		"Local":  localDB,
		"Remote": remoteDB,
	} {
		factory := factory
		t.Run(name, func(t *testing.T) {
			fc, err := NewFeatureTableConnection(context.Background(), factory(t), tableName)
			require.Nil(t, err)
			defer fc.Close()
			fn(t, fc)
		})
	}
}

func createNewTable(t *testing.T, fc *FeatureTableConnection) {
	err := fc.CreateNewTable(context.Background(), "id", []ColumnDescription{{"da1", 2}, {"da2", 3}, {"da3", 4}})
	require.Nil(t, err)
}

func populateTable(t *testing.T, fc *FeatureTableConnection) {
	cols, err := fc.GetHeaders(context.Background())
	require.Nil(t, err)
	require.Len(t, cols, 4)

	cols[0].Longs = []int64{1, 2}
	cols[1].DoubleArrays = [][]float64{{10, 20}, {30, 40}}
	cols[2].DoubleArrays = [][]float64{{}, {400, 500, 600}}
	cols[3].DoubleArrays = [][]float64{{0.5, 0.25, 0.125, 0.0625}, {}}
	_, err = fc.AddData(context.Background(), cols)
	require.Nil(t, err)
}

func TestCreateNewTable(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)

		headers, err := fc.Headers(context.Background())
		require.Nil(t, err)
		names := make([]string, len(headers))
		for i, h := range headers {
			names[i] = h.Name
		}
		assert.Equal(t, []string{"id", "da1", "da2", "da3", "_b_id", "_b_da1", "_b_da2", "_b_da3"}, names)
		assert.Equal(t, 3, headers[2].Size)
		assert.Equal(t, tbl.Bool, headers[7].Kind)
	})
}

func TestCreateNewTableFailureDeletesTable(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		err := fc.CreateNewTable(context.Background(), "id", []ColumnDescription{{"da1", 2}, {"da1", 3}})
		assert.True(t, errors.Is(err, storage.ErrInvalidHeaders), "got %v", err)

		found, err := fc.DB().FindTables(context.Background(), tableName)
		require.Nil(t, err)
		assert.Len(t, found, 0)
	})
}

func TestIsValid(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)

		cols, err := fc.IsValid(context.Background(), []int{0, 1, 2, 3}, 0, 2)
		require.Nil(t, err)
		assert.Equal(t, []bool{true, true}, cols[0].Bools)
		assert.Equal(t, []bool{true, true}, cols[1].Bools)
		assert.Equal(t, []bool{false, true}, cols[2].Bools)
		assert.Equal(t, []bool{true, false}, cols[3].Bools)
	})
}

func TestAddData(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)

		cols, err := fc.ReadArray(context.Background(), []int{0, 1, 2, 3}, 0, 2)
		require.Nil(t, err)
		assert.Equal(t, []int64{1, 2}, cols[0].Longs)
		assert.Equal(t, [][]float64{{10, 20}, {30, 40}}, cols[1].DoubleArrays)
		assert.Equal(t, [][]float64{{}, {400, 500, 600}}, cols[2].DoubleArrays)
		assert.Equal(t, [][]float64{{0.5, 0.25, 0.125, 0.0625}, {}}, cols[3].DoubleArrays)
	})
}

func TestAddDataLeavesInputAlone(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)

		cols, err := fc.GetHeaders(context.Background())
		require.Nil(t, err)
		cols[0].Longs = []int64{1}
		cols[1].DoubleArrays = [][]float64{{}}
		cols[2].DoubleArrays = [][]float64{{1, 2, 3}}
		cols[3].DoubleArrays = [][]float64{{}}

		written, err := fc.AddData(context.Background(), cols)
		require.Nil(t, err)
		require.Len(t, written, 8)
		assert.Equal(t, [][]float64{{0, 0}}, written[1].DoubleArrays)
		assert.Equal(t, []bool{false}, written[5].Bools)
		assert.Equal(t, [][]float64{{}}, cols[1].DoubleArrays)
	})
}

func TestAddDataWrongLayout(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		ctx := context.Background()

		cols, err := fc.GetHeaders(ctx)
		require.Nil(t, err)
		_, err = fc.AddData(ctx, cols[:3])
		assert.True(t, errors.Is(err, ErrColumnLayout), "got %v", err)

		cols[2] = tbl.NewDoubleColumn("da2", "")
		_, err = fc.AddData(ctx, cols)
		assert.True(t, errors.Is(err, ErrColumnLayout), "got %v", err)
	})
}

func TestAddPartialData(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)
		ctx := context.Background()

		headers, err := fc.GetHeaders(ctx)
		require.Nil(t, err)
		cols := []*tbl.Column{headers[0], headers[2]}
		cols[0].Longs = []int64{10, 11, 12}
		cols[1].DoubleArrays = [][]float64{{-1, -2, -3}, {}, {-7, -8, -9}}
		_, err = fc.AddPartialData(ctx, cols)
		require.Nil(t, err)

		read, err := fc.ReadArray(ctx, []int{0, 1, 2, 3}, 0, 5)
		require.Nil(t, err)
		assert.Equal(t, []int64{1, 2, 10, 11, 12}, read[0].Longs)
		assert.Equal(t, [][]float64{{10, 20}, {30, 40}, {}, {}, {}}, read[1].DoubleArrays)
		assert.Equal(t, [][]float64{{}, {400, 500, 600}, {-1, -2, -3}, {}, {-7, -8, -9}}, read[2].DoubleArrays)
		assert.Equal(t, [][]float64{{0.5, 0.25, 0.125, 0.0625}, {}, {}, {}, {}}, read[3].DoubleArrays)
	})
}

func TestAddPartialDataErrors(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		ctx := context.Background()

		_, err := fc.AddPartialData(ctx, []*tbl.Column{tbl.NewDoubleArrayColumn("da1", "", 2, []float64{1, 2})})
		assert.True(t, errors.Is(err, ErrColumnLayout), "got %v", err)

		_, err = fc.AddPartialData(ctx, []*tbl.Column{
			tbl.NewLongColumn("id", "", 1),
			tbl.NewDoubleArrayColumn("other", "", 2, []float64{1, 2}),
		})
		assert.True(t, errors.Is(err, ErrUnexpectedColumns), "got %v", err)

		_, err = fc.AddPartialData(ctx, []*tbl.Column{
			tbl.NewLongColumn("id", "", 1),
			tbl.NewLongColumn("da1", "", 1),
		})
		assert.True(t, errors.Is(err, ErrColumnLayout), "got %v", err)

		n, err := fc.GetNumberOfRows(ctx)
		require.Nil(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestGetRowID(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)

		idx, err := fc.GetRowID(context.Background(), 2)
		require.Nil(t, err)
		assert.Equal(t, []int64{1}, idx)

		idx, err = fc.GetRowID(context.Background(), 7)
		require.Nil(t, err)
		assert.Len(t, idx, 0)
	})
}

func TestReadSubArray(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)

		cols, err := fc.ReadSubArray(context.Background(), map[int][]int{3: {0, 3}, 0: {}, 1: {1}}, 0, 2)
		require.Nil(t, err)
		require.Len(t, cols, 3)
		assert.Equal(t, "id", cols[0].Name)
		assert.Equal(t, []int64{1, 2}, cols[0].Longs)
		assert.Equal(t, "da1", cols[1].Name)
		assert.Equal(t, [][]float64{{20}, {40}}, cols[1].DoubleArrays)
		assert.Equal(t, "da3", cols[2].Name)
		assert.Equal(t, [][]float64{{0.5, 0.0625}, {}}, cols[2].DoubleArrays)

		_, err = fc.ReadSubArray(context.Background(), map[int][]int{1: {2}}, 0, 2)
		assert.True(t, errors.Is(err, storage.ErrInvalidRange), "got %v", err)
	})
}

func TestCheckColNumbers(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)

		_, err := fc.ReadArray(context.Background(), []int{0, 4}, 0, 1)
		assert.True(t, errors.Is(err, storage.ErrInvalidColumn), "got %v", err)
		_, err = fc.IsValid(context.Background(), []int{5}, 0, 1)
		assert.True(t, errors.Is(err, storage.ErrInvalidColumn), "got %v", err)
	})
}

func TestOpenTable(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		ctx := context.Background()
		createNewTable(t, fc)
		populateTable(t, fc)
		first := fc.TableID

		other, err := NewFeatureTableConnection(ctx, fc.DB(), tableName)
		require.Nil(t, err)
		info, err := other.OpenTable(ctx, 0, "")
		require.Nil(t, err)
		assert.Equal(t, first, info.ID)
		assert.Equal(t, int64(2), info.Rows)

		_, err = other.OpenTable(ctx, first, "/wrong.h5")
		assert.True(t, errors.Is(err, ErrNoTable), "got %v", err)

		_, err = other.OpenTable(ctx, 0, "/missing.h5")
		assert.True(t, errors.Is(err, ErrNoTable), "got %v", err)

		createNewTable(t, fc)
		_, err = other.OpenTable(ctx, 0, tableName)
		assert.True(t, errors.Is(err, ErrMultipleTables), "got %v", err)

		info, err = other.OpenTable(ctx, fc.TableID, tableName)
		require.Nil(t, err)
		assert.Equal(t, int64(0), info.Rows)

		ids, err := fc.DeleteAllTables(ctx)
		require.Nil(t, err)
		assert.Equal(t, []int64{first, fc.TableID}, ids)

		_, err = fc.GetNumberOfRows(ctx)
		assert.True(t, errors.Is(err, ErrNotOpen), "got %v", err)
	})
}

func TestDumpTable(t *testing.T) {
	forEachDB(t, func(t *testing.T, fc *FeatureTableConnection) {
		createNewTable(t, fc)
		populateTable(t, fc)

		var buf bytes.Buffer
		require.Nil(t, fc.DumpTable(context.Background(), &buf))
		out := buf.String()
		assert.Contains(t, out, "_b_da3")
		assert.Contains(t, out, "[10.00 20.00]")
		assert.Contains(t, out, "[0.00 0.00 0.00]")
	})
}

func TestDisabled(t *testing.T) {
	db := storage.NewKVDB(storage.NewNullKV())
	_, err := New(context.Background(), db, tableName, 0)
	assert.True(t, errors.Is(err, ErrTablesDisabled), "got %v", err)
}
