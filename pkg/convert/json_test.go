package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

func TestFeaturesToJSONNests(t *testing.T) {
	rec := simulate.Record{
		ID:        3,
		Timestamp: time.Date(2012, 5, 1, 10, 0, 0, 0, time.UTC),
		Features: map[string][]float64{
			"f0":       {1, 2},
			"t1_f2":    {3},
			"t1_t2_f3": {4, 5},
		},
	}
	doc, err := FeaturesToJSON(rec, simulate.FlatLayout)
	require.Nil(t, err)

	assert.Equal(t, int64(3), gjson.Get(doc, "id").Int())
	assert.Equal(t, "2012-05-01T10:00:00Z", gjson.Get(doc, "timestamp").String())
	assert.Equal(t, 2.0, gjson.Get(doc, "f0.1").Num)
	assert.Equal(t, 3.0, gjson.Get(doc, "t1.f2.0").Num)
	assert.Equal(t, 5.0, gjson.Get(doc, "t1.t2.f3.1").Num)
}

func TestJSONRoundTrip(t *testing.T) {
	for name, layout := range map[string]simulate.Layout{"Flat": simulate.FlatLayout, "Path": simulate.PathLayout} {
		t.Run(name, func(t *testing.T) {
			rec := simulate.NewSimulator(layout, 5).Simulate(11, 2, 0.3)
			doc, err := FeaturesToJSON(rec, layout)
			require.Nil(t, err)

			back, err := JSONToFeatures(doc, layout)
			require.Nil(t, err)
			assert.Equal(t, rec.ID, back.ID)
			assert.True(t, rec.Timestamp.Equal(back.Timestamp))
			assert.Equal(t, len(rec.Features), len(back.Features))
			for k, v := range rec.Features {
				assert.InDeltaSlice(t, v, back.Features[k], 1e-9, k)
			}
		})
	}
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "t1.t1.f1", FieldPath("/t1/t1/f1", simulate.PathLayout))
	assert.Equal(t, "t2.f0", FieldPath("t2_f0", simulate.FlatLayout))
	assert.Equal(t, "f3", FieldPath("f3", simulate.FlatLayout))
}

func TestJSONToFeaturesInvalid(t *testing.T) {
	_, err := JSONToFeatures(`{"id":1,"f0":["x"]}`, simulate.FlatLayout)
	assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)

	_, err = JSONToFeatures(`[1,2]`, simulate.FlatLayout)
	assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)

	_, err = JSONToFeatures(`{"id":1,"f0":true}`, simulate.FlatLayout)
	assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)
}
