package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kpfaulkner/featuretables/pkg/bench"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

func TestToDocument(t *testing.T) {
	rec := simulate.Record{ID: 4, Timestamp: time.Unix(0, 0), Features: map[string][]float64{
		"/f1":       {1},
		"/t1/t2/f3": {2, 3},
		"/t1/f2":    {4},
	}}
	doc := toDocument(rec, simulate.PathLayout)

	assert.Equal(t, int64(4), doc["id"])
	assert.Equal(t, []float64{1}, doc["f1"])
	t1 := doc["t1"].(bson.M)
	assert.Equal(t, []float64{4}, t1["f2"])
	assert.Equal(t, []float64{2, 3}, t1["t2"].(bson.M)["f3"])
}

// TestMongo needs a running server, e.g.
// FEATURETABLES_TEST_MONGO=mongodb://localhost:27017
func TestMongo(t *testing.T) {
	uri := os.Getenv("FEATURETABLES_TEST_MONGO")
	if uri == "" {
		t.Skip("FEATURETABLES_TEST_MONGO not set")
	}
	ctx := context.Background()

	store, err := New(ctx, Config{URI: uri, Database: "featuretables_test", Drop: true, Layout: simulate.PathLayout})
	require.Nil(t, err)
	defer store.Close()

	sim := simulate.NewSimulator(simulate.PathLayout, 1)
	require.Nil(t, store.Prepare(ctx, sim.Simulate(0, 0, 0)))

	ids := make([]int64, 50)
	for i := range ids {
		ids[i] = int64(i)
	}
	_, err = bench.RunInsert(ctx, store, sim, ids, 10, 0.2)
	require.Nil(t, err)

	res, err := bench.RunReadField(ctx, store, "/t1/t1/f1")
	require.Nil(t, err)
	assert.True(t, len(res.Values) > 0 && len(res.Values) <= 50)

	local := bench.CountAllAbove(res.Values, 1)
	remote, err := store.CountAllAbove(ctx, "/t1/t1/f1", 1)
	require.Nil(t, err)
	assert.Equal(t, int64(local), remote)

	buckets, err := store.MeanHistogram(ctx, "/t1/t1/f1")
	require.Nil(t, err)
	total := int64(0)
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, int64(len(res.Values)), total)
}
