package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

func newFeatureTable(t *testing.T, sim *simulate.Simulator) *featuretable.FeatureTableConnection {
	ctx := context.Background()
	db := storage.NewKVDB(storage.NewMemoryKV())
	t.Cleanup(func() { db.Close() })

	fc, err := featuretable.NewFeatureTableConnection(ctx, db, "/bench.h5")
	require.Nil(t, err)
	require.Nil(t, Setup(ctx, fc, sim, "ImageID", true))
	return fc
}

func TestSetup(t *testing.T) {
	ctx := context.Background()
	sim := simulate.NewSimulator(simulate.FlatLayout, 1)
	fc := newFeatureTable(t, sim)

	headers, err := fc.GetHeaders(ctx)
	require.Nil(t, err)
	assert.Equal(t, "ImageID", headers[0].Name)
	assert.Len(t, headers, 85)

	// a second connection opens the table created above
	other, err := featuretable.NewFeatureTableConnection(ctx, fc.DB(), "/bench.h5")
	require.Nil(t, err)
	require.Nil(t, Setup(ctx, other, sim, "ImageID", false))
	assert.Equal(t, fc.TableID, other.TableID)
}

func TestInsertCheck(t *testing.T) {
	ctx := context.Background()
	sim := simulate.NewSimulator(simulate.FlatLayout, 1)
	fc := newFeatureTable(t, sim)

	kept, sw, err := Insert(ctx, fc, sim, 3, true, true)
	require.Nil(t, err)
	assert.Len(t, kept, 3)
	assert.Len(t, sw.Laps(), 3)

	n, err := fc.GetNumberOfRows(ctx)
	require.Nil(t, err)
	assert.Equal(t, int64(3), n)

	assert.Nil(t, CompareLastKeep(ctx, fc, kept))
	assert.Nil(t, CompareLastKeep(ctx, fc, kept[2:]))

	// the kept records don't line up with the last row
	err = CompareLastKeep(ctx, fc, kept[:1])
	assert.True(t, errors.Is(err, ErrMismatch), "got %v", err)

	err = CompareLastKeep(ctx, fc, append(kept, kept...))
	assert.True(t, errors.Is(err, ErrMismatch), "got %v", err)
}

func TestInsertBulkRepeat(t *testing.T) {
	ctx := context.Background()
	sim := simulate.NewSimulator(simulate.FlatLayout, 2)
	fc := newFeatureTable(t, sim)

	kept, sw, err := InsertBulkRepeat(ctx, fc, sim, 4, 3, true)
	require.Nil(t, err)
	assert.Len(t, kept, 4)
	assert.Len(t, sw.Laps(), 3)

	n, err := fc.GetNumberOfRows(ctx)
	require.Nil(t, err)
	assert.Equal(t, int64(12), n)
	assert.Nil(t, CompareLastKeep(ctx, fc, kept))

	rows, err := fc.GetRowID(ctx, 2)
	require.Nil(t, err)
	assert.Equal(t, []int64{2, 6, 10}, rows)

	kept, _, err = InsertBulkRepeat(ctx, fc, sim, 2, 1, false)
	require.Nil(t, err)
	assert.Nil(t, kept)
}

func TestReadBulk(t *testing.T) {
	ctx := context.Background()
	sim := simulate.NewSimulator(simulate.FlatLayout, 1)
	fc := newFeatureTable(t, sim)

	_, _, err := InsertBulkRepeat(ctx, fc, sim, 5, 2, false)
	require.Nil(t, err)

	sw, err := ReadBulk(ctx, fc, 4, 0)
	require.Nil(t, err)
	assert.Len(t, sw.Laps(), 3)

	sw, err = ReadBulk(ctx, fc, 4, 1)
	require.Nil(t, err)
	assert.Len(t, sw.Laps(), 10)

	_, err = ReadBulk(ctx, fc, 0, 0)
	assert.NotNil(t, err)
}
