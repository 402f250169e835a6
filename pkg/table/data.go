package table

import (
	"fmt"
	"time"
)

// Data is the result of reading a range of rows from a table.
type Data struct {
	Columns      []*Column `msgpack:"columns"`
	RowNumbers   []int64   `msgpack:"rows"`
	LastModified time.Time `msgpack:"modified"`
}

// Headers returns value-less copies of the columns.
func Headers(cols []*Column) []*Column {
	headers := make([]*Column, len(cols))
	for i, c := range cols {
		headers[i] = c.Header()
	}
	return headers
}

// CloneAll deep copies a set of columns.
func CloneAll(cols []*Column) []*Column {
	res := make([]*Column, len(cols))
	for i, c := range cols {
		res[i] = c.Clone()
	}
	return res
}

// CheckAgainst verifies cols can be appended to a table with the given headers
// and returns the number of rows they hold.
func CheckAgainst(headers []*Column, cols []*Column) (int, error) {
	if len(cols) != len(headers) {
		return 0, fmt.Errorf("expected %d columns, got %d: %w", len(headers), len(cols), ErrLengthMismatch)
	}

	nRows := -1
	for i, c := range cols {
		if !c.SameHeader(headers[i]) {
			return 0, fmt.Errorf("column %d: expected %s %q (%d), got %s %q (%d): %w",
				i, headers[i].Kind, headers[i].Name, headers[i].Size, c.Kind, c.Name, c.Size, ErrKindMismatch)
		}
		if err := c.Validate(); err != nil {
			return 0, err
		}
		if nRows < 0 {
			nRows = c.Len()
		} else if c.Len() != nRows {
			return 0, fmt.Errorf("column %q has %d rows, expected %d: %w", c.Name, c.Len(), nRows, ErrLengthMismatch)
		}
	}
	if nRows < 0 {
		nRows = 0
	}
	return nRows, nil
}

// Rows splits columns into rows of cells.
func Rows(cols []*Column, nRows int) ([][]Cell, error) {
	rows := make([][]Cell, nRows)
	for r := 0; r < nRows; r++ {
		row := make([]Cell, len(cols))
		for c, col := range cols {
			cell, err := col.Cell(r)
			if err != nil {
				return nil, err
			}
			row[c] = cell
		}
		rows[r] = row
	}
	return rows, nil
}
