//go:build hdf5

package hdf5store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/bench"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

func TestHDF5(t *testing.T) {
	for _, mode := range []Mode{EArray, Chunked} {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			store, err := New(Config{Filename: filepath.Join(t.TempDir(), "test.h5"), Mode: mode, ChunkRows: 4})
			require.Nil(t, err)
			defer store.Close()

			sim := simulate.NewSimulator(simulate.PathLayout, 1)
			require.Nil(t, store.Prepare(ctx, sim.Simulate(0, 0, 0)))

			_, err = bench.RunInsert(ctx, store, sim, []int64{1, 2, 3, 4, 5}, 2, 0.3)
			require.Nil(t, err)

			values, err := store.ReadField(ctx, "/t1/t2/f3")
			require.Nil(t, err)
			assert.True(t, len(values) <= 5)
			for _, v := range values {
				assert.Len(t, v, 30)
			}
		})
	}
}
