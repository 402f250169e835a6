package simulate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/table"
)

func TestSimulateShape(t *testing.T) {
	sim := NewSimulator(FlatLayout, 1)
	rec := sim.Simulate(7, 3, 0)

	assert.Equal(t, int64(7), rec.ID)
	assert.Len(t, rec.Features, 84)
	assert.Len(t, rec.Features["f0"], 10)
	assert.Len(t, rec.Features["t0_f1"], 20)
	assert.Len(t, rec.Features["t1_t2_f3"], 40)
}

func TestSimulatePathLayout(t *testing.T) {
	sim := NewSimulator(PathLayout, 1)
	rec := sim.Simulate(1, 0, 0)

	assert.Len(t, rec.Features, 84)
	assert.Contains(t, rec.Features, "/f1")
	assert.Contains(t, rec.Features, "/t4/f2")
	assert.Contains(t, rec.Features, "/t1/t2/f3")

	groups, feature := PathLayout.Split("/t1/t2/f3")
	assert.Equal(t, []string{"t1", "t2"}, groups)
	assert.Equal(t, "f3", feature)

	groups, feature = FlatLayout.Split("f0")
	assert.Len(t, groups, 0)
	assert.Equal(t, "f0", feature)
}

func TestSimulateSeeded(t *testing.T) {
	a := NewSimulator(FlatLayout, 42).Simulate(1, 5, 0.5)
	b := NewSimulator(FlatLayout, 42).Simulate(1, 5, 0.5)
	assert.Equal(t, a.Features, b.Features)
}

func TestSimulateDelete(t *testing.T) {
	sim := NewSimulator(FlatLayout, 3)
	assert.Len(t, sim.Simulate(1, 0, 1).Features, 0)

	partial := sim.Simulate(2, 0, 0.5).Features
	assert.True(t, len(partial) > 0 && len(partial) < 84, "got %d features", len(partial))
}

func TestSimulateMean(t *testing.T) {
	sim := NewSimulator(FlatLayout, 9)
	sum, n := 0.0, 0
	for _, v := range sim.Simulate(1, MuFor(13), 0).Features {
		for _, x := range v {
			sum += x
			n++
		}
	}
	// 2100 samples with sigma 4 puts the mean well within 1 of mu
	assert.InDelta(t, 3.0, sum/float64(n), 1.0)
}

func TestDescription(t *testing.T) {
	desc := Description(map[string][]float64{"b": {1, 2}, "a": {1}})
	require.Len(t, desc, 2)
	assert.Equal(t, "a", desc[0].Name)
	assert.Equal(t, 1, desc[0].Size)
	assert.Equal(t, "b", desc[1].Name)
	assert.Equal(t, 2, desc[1].Size)
}

func TestColumns(t *testing.T) {
	cols := Columns(5, map[string][]float64{"b": {1, 2}, "a": {3}})
	require.Len(t, cols, 3)
	assert.Equal(t, []int64{5}, cols[0].Longs)
	assert.Equal(t, "a", cols[1].Name)
	assert.Equal(t, 1, cols[1].Size)
	assert.Equal(t, [][]float64{{1, 2}}, cols[2].DoubleArrays)
}

func TestMultiColumns(t *testing.T) {
	cols := MultiColumns([]Record{
		{ID: 1, Features: map[string][]float64{"a": {1, 2}}},
		{ID: 2, Features: map[string][]float64{"b": {3}}},
	})
	require.Len(t, cols, 3)
	assert.Equal(t, []int64{1, 2}, cols[0].Longs)
	assert.Equal(t, [][]float64{{1, 2}, {}}, cols[1].DoubleArrays)
	assert.Equal(t, 2, cols[1].Size)
	assert.Equal(t, [][]float64{{}, {3}}, cols[2].DoubleArrays)
}

func TestColumnsToMaps(t *testing.T) {
	cols := []*table.Column{
		table.NewLongColumn("id", "", 1, 2),
		table.NewDoubleArrayColumn("a", "", 1, []float64{1}, []float64{2}),
	}
	maps := ColumnsToMaps(cols, 2)
	require.Len(t, maps, 2)
	assert.Equal(t, int64(2), maps[1]["id"])
	assert.Equal(t, []float64{1}, maps[0]["a"])
}

func TestRecords(t *testing.T) {
	in := []Record{
		{ID: 1, Features: map[string][]float64{"a": {1, 2}}},
		{ID: 2, Features: map[string][]float64{"a": {5, 6}, "b": {3}}},
	}
	out, err := Records(MultiColumns(in))
	require.Nil(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Features, out[0].Features)
	assert.Equal(t, in[1].Features, out[1].Features)
	assert.Equal(t, int64(2), out[1].ID)

	_, err = Records([]*table.Column{table.NewStringColumn("id", "", "x")})
	assert.True(t, errors.Is(err, table.ErrKindMismatch), "got %v", err)
}

func TestMuFor(t *testing.T) {
	assert.Equal(t, Mus[0], MuFor(0))
	assert.Equal(t, Mus[3], MuFor(3))
	assert.Equal(t, Mus[1], MuFor(len(Mus)+1))
	assert.Equal(t, Mus[len(Mus)-1], MuFor(-1))
	assert.Equal(t, Mus[len(Mus)-2], MuFor(-2*len(Mus)-2))
}
