package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/convert"
	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	db := storage.NewKVDB(storage.NewMemoryKV())
	defer db.Close()

	sim := simulate.NewSimulator(simulate.FlatLayout, 9)
	var in bytes.Buffer
	var recs []simulate.Record
	for i := 0; i < 5; i++ {
		// the first batch defines the table so it keeps every feature
		del := 0.2
		if i < 2 {
			del = 0
		}
		rec := sim.Simulate(int64(i), simulate.MuFor(i), del)
		recs = append(recs, rec)
		doc, err := convert.FeaturesToJSON(rec, simulate.FlatLayout)
		require.Nil(t, err)
		in.WriteString(doc + "\n")
	}

	fc, err := featuretable.NewFeatureTableConnection(ctx, db, "/import.h5")
	require.Nil(t, err)
	n, err := importTable(ctx, fc, &in, simulate.FlatLayout, 2)
	require.Nil(t, err)
	assert.Equal(t, 5, n)

	rows, err := fc.GetNumberOfRows(ctx)
	require.Nil(t, err)
	assert.Equal(t, int64(5), rows)

	var out bytes.Buffer
	n, err = exportTable(ctx, fc, &out, simulate.FlatLayout, 3)
	require.Nil(t, err)
	assert.Equal(t, 5, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	for i, line := range lines {
		back, err := convert.JSONToFeatures(line, simulate.FlatLayout)
		require.Nil(t, err)
		assert.Equal(t, recs[i].ID, back.ID)
		assert.Equal(t, len(recs[i].Features), len(back.Features), "row %d", i)
		for k, v := range recs[i].Features {
			assert.InDeltaSlice(t, v, back.Features[k], 1e-9, k)
		}
	}
}

func TestImportInvalid(t *testing.T) {
	ctx := context.Background()
	db := storage.NewKVDB(storage.NewMemoryKV())
	defer db.Close()

	fc, err := featuretable.NewFeatureTableConnection(ctx, db, "/import.h5")
	require.Nil(t, err)
	_, err = importTable(ctx, fc, strings.NewReader("{\"id\":1}\nnot json\n"), simulate.FlatLayout, 10)
	assert.True(t, errors.Is(err, convert.ErrInvalidDocument), "got %v", err)
}
