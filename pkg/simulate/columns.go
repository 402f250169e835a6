package simulate

import (
	"fmt"
	"sort"

	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

// SortedKeys returns the feature names in order.
func SortedKeys(features map[string][]float64) []string {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Description returns the column descriptions for a feature set, sorted by name.
func Description(features map[string][]float64) []featuretable.ColumnDescription {
	keys := SortedKeys(features)
	desc := make([]featuretable.ColumnDescription, len(keys))
	for i, k := range keys {
		desc[i] = featuretable.ColumnDescription{Name: k, Size: len(features[k])}
	}
	return desc
}

// Columns converts one record's features into single-row columns: the id
// column then one column per feature, sorted by name.
func Columns(id int64, features map[string][]float64) []*table.Column {
	cols := []*table.Column{table.NewLongColumn(IDColumn, "", id)}
	for _, k := range SortedKeys(features) {
		v := features[k]
		cols = append(cols, table.NewDoubleArrayColumn(k, "", len(v), v))
	}
	return cols
}

// MultiColumns concatenates records into one set of columns. Features missing
// from a record are left as empty cells.
func MultiColumns(records []Record) []*table.Column {
	widths := make(map[string]int)
	for _, r := range records {
		for k, v := range r.Features {
			if len(v) > widths[k] {
				widths[k] = len(v)
			}
		}
	}
	keys := make([]string, 0, len(widths))
	for k := range widths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ids := table.NewLongColumn(IDColumn, "")
	cols := []*table.Column{ids}
	for _, k := range keys {
		cols = append(cols, table.NewDoubleArrayColumn(k, "", widths[k]))
	}
	for _, r := range records {
		ids.Longs = append(ids.Longs, r.ID)
		for i, k := range keys {
			v, ok := r.Features[k]
			if !ok {
				v = []float64{}
			}
			cols[i+1].DoubleArrays = append(cols[i+1].DoubleArrays, v)
		}
	}
	return cols
}

// ColumnsToMaps converts the first nRows rows of cols into one map per row,
// keyed by column name.
func ColumnsToMaps(cols []*table.Column, nRows int) []map[string]any {
	res := make([]map[string]any, nRows)
	for r := 0; r < nRows; r++ {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			switch c.Kind {
			case table.Long:
				m[c.Name] = c.Longs[r]
			case table.Bool:
				m[c.Name] = c.Bools[r]
			case table.Double:
				m[c.Name] = c.Doubles[r]
			case table.String:
				m[c.Name] = c.Strings[r]
			case table.LongArray:
				m[c.Name] = c.LongArrays[r]
			case table.DoubleArray:
				m[c.Name] = c.DoubleArrays[r]
			}
		}
		res[r] = m
	}
	return res
}

// Records is the inverse of MultiColumns. The first column holds the ids,
// empty cells of the double array columns are left out of the features and
// columns of other kinds are ignored.
func Records(cols []*table.Column) ([]Record, error) {
	if len(cols) == 0 {
		return nil, nil
	}
	if cols[0].Kind != table.Long {
		return nil, fmt.Errorf("id column %s: %w", cols[0].Name, table.ErrKindMismatch)
	}
	records := make([]Record, cols[0].Len())
	for r := range records {
		records[r] = Record{ID: cols[0].Longs[r], Features: make(map[string][]float64)}
	}
	for _, c := range cols[1:] {
		if c.Kind != table.DoubleArray {
			continue
		}
		for r, v := range c.DoubleArrays {
			if len(v) == 0 || r >= len(records) {
				continue
			}
			records[r].Features[c.Name] = v
		}
	}
	return records, nil
}
