package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

// recordingStore keeps inserted batches in memory.
type recordingStore struct {
	NullStore
	batches [][]simulate.Record
	fail    error
}

func (s *recordingStore) Insert(ctx context.Context, records []simulate.Record) error {
	if s.fail != nil {
		return s.fail
	}
	s.batches = append(s.batches, append([]simulate.Record(nil), records...))
	return nil
}

func (s *recordingStore) ReadField(ctx context.Context, key string) ([][]float64, error) {
	var res [][]float64
	for _, b := range s.batches {
		for _, r := range b {
			if v, ok := r.Features[key]; ok {
				res = append(res, v)
			}
		}
	}
	return res, nil
}

func TestRunInsert(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	sim := simulate.NewSimulator(simulate.FlatLayout, 3)

	sw, err := RunInsert(ctx, store, sim, []int64{1, 2, 3, 4, 5}, 2, 0)
	require.Nil(t, err)
	assert.Len(t, sw.Laps(), 3)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[2], 1)
	assert.Equal(t, int64(5), store.batches[2][0].ID)

	res, err := RunReadField(ctx, store, "t1_t2_f3")
	require.Nil(t, err)
	assert.Len(t, res.Values, 5)
	assert.Len(t, res.Means, 5)
	assert.Len(t, res.Values[0], 40)
}

func TestRunInsertNegativeIDs(t *testing.T) {
	store := &recordingStore{}
	sim := simulate.NewSimulator(simulate.FlatLayout, 3)

	sw, err := RunInsert(context.Background(), store, sim, []int64{-1, -25}, 1, 0)
	require.Nil(t, err)
	assert.Len(t, sw.Laps(), 2)
	require.Len(t, store.batches, 2)
	assert.Equal(t, int64(-25), store.batches[1][0].ID)
}

func TestRunInsertError(t *testing.T) {
	boom := errors.New("boom")
	store := &recordingStore{fail: boom}
	sim := simulate.NewSimulator(simulate.FlatLayout, 3)

	_, err := RunInsert(context.Background(), store, sim, []int64{1}, 10, 0)
	assert.Equal(t, boom, err)
}

func TestCountAllAbove(t *testing.T) {
	values := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{0.5, 10},
		{},
	}
	assert.Equal(t, 2, CountAllAbove(values, 0.9))
	assert.Equal(t, 2, CountAllAbove(values, 3))
	assert.Equal(t, 1, CountAllAbove(values, 100))
}

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	store := NewNullStore()
	sim := simulate.NewSimulator(simulate.FlatLayout, 1)
	require.Nil(t, store.Prepare(ctx, sim.Simulate(0, 0, 0)))

	sw, err := RunInsert(ctx, store, sim, []int64{1, 2, 3}, 1, 0.5)
	require.Nil(t, err)
	assert.Len(t, sw.Laps(), 3)

	values, err := store.ReadField(ctx, "t0_f0")
	require.Nil(t, err)
	assert.Empty(t, values)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RunInsert(cancelled, store, sim, []int64{1}, 1, 0)
	assert.Equal(t, context.Canceled, err)
	assert.Nil(t, store.Close())
}
