// Package storagetest is a conformance suite shared by every KV engine and
// every storage.DB implementation, local or remote.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

// KVFactory returns a fresh, empty engine. Cleanup is the caller's job.
type KVFactory func(t *testing.T) storage.KV

// DBFactory returns a fresh, empty table DB.
type DBFactory func(t *testing.T) storage.DB

// RunKVTests runs the engine suite.
func RunKVTests(t *testing.T, name string, factory KVFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})
		t.Run("SetMany&Scan", func(t *testing.T) {
			testSetManyScan(t, factory(t))
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})
	})
}

// RunDBTests runs the table suite.
func RunDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("CreateFind", func(t *testing.T) {
			testCreateFind(t, factory(t))
		})
		t.Run("Initialize", func(t *testing.T) {
			testInitialize(t, factory(t))
		})
		t.Run("AddRead", func(t *testing.T) {
			testAddRead(t, factory(t))
		})
		t.Run("ReadErrors", func(t *testing.T) {
			testReadErrors(t, factory(t))
		})
		t.Run("WhereList", func(t *testing.T) {
			testWhereList(t, factory(t))
		})
		t.Run("Delete", func(t *testing.T) {
			testDeleteTables(t, factory(t))
		})
	})
}

func testSetGet(t *testing.T, kv storage.KV) {
	_, err := kv.Get([]byte("missing"))
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)

	require.Nil(t, kv.Set([]byte("a"), []byte("1")))
	v, err := kv.Get([]byte("a"))
	require.Nil(t, err)
	assert.Equal(t, []byte("1"), v)

	// overwrite
	require.Nil(t, kv.Set([]byte("a"), []byte("2")))
	v, err = kv.Get([]byte("a"))
	require.Nil(t, err)
	assert.Equal(t, []byte("2"), v)
}

func testSetManyScan(t *testing.T, kv storage.KV) {
	var pairs []storage.KeyValue
	for i := 9; i >= 0; i-- {
		pairs = append(pairs, storage.KeyValue{Key: []byte(fmt.Sprintf("p/%02d", i)), Value: []byte{byte(i)}})
	}
	pairs = append(pairs, storage.KeyValue{Key: []byte("q/00"), Value: []byte{100}})
	require.Nil(t, kv.SetMany(pairs))

	var keys []string
	err := kv.Scan([]byte("p/03"), []byte("p/07"), func(key []byte, value []byte) error {
		keys = append(keys, string(key))
		assert.Equal(t, []byte{byte(len(keys) + 2)}, value)
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"p/03", "p/04", "p/05", "p/06"}, keys)

	// unbounded
	keys = nil
	err = kv.Scan([]byte("p/09"), nil, func(key []byte, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, []string{"p/09", "q/00"}, keys)

	// errors stop the scan
	stop := errors.New("stop")
	count := 0
	err = kv.Scan([]byte("p/"), []byte("p0"), func(key []byte, value []byte) error {
		count++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, count)
}

func testDelete(t *testing.T, kv storage.KV) {
	require.Nil(t, kv.SetMany([]storage.KeyValue{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}))
	require.Nil(t, kv.Delete([]byte("a")))
	require.Nil(t, kv.DeleteMany([][]byte{[]byte("b"), []byte("c")}))

	for _, k := range []string{"a", "b", "c"} {
		_, err := kv.Get([]byte(k))
		assert.True(t, errors.Is(err, storage.ErrNotFound), "%s should be gone", k)
	}
}

// featureHeaders is the layout the feature table uses: id, arrays, validity.
func featureHeaders() []*table.Column {
	return []*table.Column{
		table.NewLongColumn("id", ""),
		table.NewDoubleArrayColumn("da1", "", 2),
		table.NewBoolColumn("_b_id", ""),
		table.NewBoolColumn("_b_da1", ""),
	}
}

func newInitialized(t *testing.T, db storage.DB, name string) storage.TableInfo {
	ctx := context.Background()
	info, err := db.CreateTable(ctx, name)
	require.Nil(t, err)
	require.Nil(t, db.Initialize(ctx, info.ID, featureHeaders()))
	return info
}

func addRows(t *testing.T, db storage.DB, id int64, ids ...int64) {
	cols := table.Headers(featureHeaders())
	for _, i := range ids {
		cols[0].Longs = append(cols[0].Longs, i)
		cols[1].DoubleArrays = append(cols[1].DoubleArrays, []float64{float64(i), float64(i) / 2})
		cols[2].Bools = append(cols[2].Bools, true)
		cols[3].Bools = append(cols[3].Bools, i%2 == 0)
	}
	require.Nil(t, db.AddData(context.Background(), id, cols))
}

func testCreateFind(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()

	enabled, err := db.Enabled(ctx)
	require.Nil(t, err)
	assert.True(t, enabled)

	a, err := db.CreateTable(ctx, "/test.h5")
	require.Nil(t, err)
	b, err := db.CreateTable(ctx, "/test.h5")
	require.Nil(t, err)
	c, err := db.CreateTable(ctx, "/test.h5x")
	require.Nil(t, err)

	assert.True(t, a.ID < b.ID && b.ID < c.ID, "ids should increase")
	assert.False(t, a.Initialized)

	found, err := db.FindTables(ctx, "/test.h5")
	require.Nil(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, a.ID, found[0].ID)
	assert.Equal(t, b.ID, found[1].ID)

	found, err = db.FindTables(ctx, "nothing")
	require.Nil(t, err)
	assert.Len(t, found, 0)

	// names that extend another with a path element stay apart
	d, err := db.CreateTable(ctx, "/test.h5/1")
	require.Nil(t, err)
	found, err = db.FindTables(ctx, "/test.h5")
	require.Nil(t, err)
	assert.Len(t, found, 2)
	found, err = db.FindTables(ctx, "/test.h5/1")
	require.Nil(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, d.ID, found[0].ID)

	got, err := db.GetTable(ctx, c.ID)
	require.Nil(t, err)
	assert.Equal(t, "/test.h5x", got.Name)

	_, err = db.GetTable(ctx, c.ID+100)
	assert.True(t, errors.Is(err, storage.ErrTableNotFound), "got %v", err)
}

func testInitialize(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()

	info, err := db.CreateTable(ctx, "t")
	require.Nil(t, err)

	_, err = db.Headers(ctx, info.ID)
	assert.True(t, errors.Is(err, storage.ErrNotInitialized), "got %v", err)

	dup := []*table.Column{table.NewLongColumn("id", ""), table.NewLongColumn("id", "")}
	err = db.Initialize(ctx, info.ID, dup)
	assert.True(t, errors.Is(err, storage.ErrInvalidHeaders), "got %v", err)

	require.Nil(t, db.Initialize(ctx, info.ID, featureHeaders()))
	err = db.Initialize(ctx, info.ID, featureHeaders())
	assert.True(t, errors.Is(err, storage.ErrAlreadyInitialized), "got %v", err)

	headers, err := db.Headers(ctx, info.ID)
	require.Nil(t, err)
	require.Len(t, headers, 4)
	assert.Equal(t, "da1", headers[1].Name)
	assert.Equal(t, table.DoubleArray, headers[1].Kind)
	assert.Equal(t, 2, headers[1].Size)
	assert.Equal(t, 0, headers[1].Len())
}

func testAddRead(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()
	info := newInitialized(t, db, "t")

	addRows(t, db, info.ID, 1, 2)
	addRows(t, db, info.ID, 3)

	n, err := db.NumberOfRows(ctx, info.ID)
	require.Nil(t, err)
	assert.Equal(t, int64(3), n)

	data, err := db.Read(ctx, info.ID, []int{3, 0}, 1, 10)
	require.Nil(t, err)
	require.Len(t, data.Columns, 2)
	assert.Equal(t, "_b_da1", data.Columns[0].Name)
	assert.Equal(t, []bool{true, false}, data.Columns[0].Bools)
	assert.Equal(t, []int64{2, 3}, data.Columns[1].Longs)
	assert.Equal(t, []int64{1, 2}, data.RowNumbers)

	data, err = db.Read(ctx, info.ID, []int{1}, 0, 1)
	require.Nil(t, err)
	assert.Equal(t, [][]float64{{1, 0.5}}, data.Columns[0].DoubleArrays)

	data, err = db.ReadCoordinates(ctx, info.ID, []int64{2, 0})
	require.Nil(t, err)
	assert.Equal(t, []int64{3, 1}, data.Columns[0].Longs)

	// wrong shape is rejected and nothing is written
	bad := table.Headers(featureHeaders())
	bad[0].Longs = []int64{4}
	bad[1].DoubleArrays = [][]float64{{1}}
	bad[2].Bools = []bool{true}
	bad[3].Bools = []bool{true}
	err = db.AddData(ctx, info.ID, bad)
	assert.True(t, errors.Is(err, table.ErrArraySize), "got %v", err)

	n, err = db.NumberOfRows(ctx, info.ID)
	require.Nil(t, err)
	assert.Equal(t, int64(3), n)
}

func testReadErrors(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()
	info := newInitialized(t, db, "t")
	addRows(t, db, info.ID, 1)

	_, err := db.Read(ctx, info.ID, []int{4}, 0, 1)
	assert.True(t, errors.Is(err, storage.ErrInvalidColumn), "got %v", err)

	_, err = db.Read(ctx, info.ID, []int{0}, 2, 1)
	assert.True(t, errors.Is(err, storage.ErrInvalidRange), "got %v", err)

	// past the end is just empty
	data, err := db.Read(ctx, info.ID, []int{0}, 5, 10)
	require.Nil(t, err)
	assert.Equal(t, 0, data.Columns[0].Len())

	_, err = db.ReadCoordinates(ctx, info.ID, []int64{1})
	assert.True(t, errors.Is(err, storage.ErrInvalidRange), "got %v", err)
}

func testWhereList(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()
	info := newInitialized(t, db, "t")
	addRows(t, db, info.ID, 1, 2, 3, 4, 2)

	rows, err := db.GetWhereList(ctx, info.ID, "id == 2", nil, 0, 100)
	require.Nil(t, err)
	assert.Equal(t, []int64{1, 4}, rows)

	rows, err = db.GetWhereList(ctx, info.ID, "da1[0] > x", map[string]any{"x": 2.5}, 0, 3)
	require.Nil(t, err)
	assert.Equal(t, []int64{2}, rows)

	rows, err = db.GetWhereList(ctx, info.ID, "id == 100", nil, 0, 100)
	require.Nil(t, err)
	assert.Len(t, rows, 0)
}

func testDeleteTables(t *testing.T, db storage.DB) {
	defer db.Close()
	ctx := context.Background()
	a := newInitialized(t, db, "t")
	b := newInitialized(t, db, "t")
	addRows(t, db, a.ID, 1, 2)

	require.Nil(t, db.DeleteTables(ctx, []int64{a.ID}))

	_, err := db.GetTable(ctx, a.ID)
	assert.True(t, errors.Is(err, storage.ErrTableNotFound), "got %v", err)

	found, err := db.FindTables(ctx, "t")
	require.Nil(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	err = db.DeleteTables(ctx, []int64{a.ID})
	assert.True(t, errors.Is(err, storage.ErrTableNotFound), "got %v", err)
}
