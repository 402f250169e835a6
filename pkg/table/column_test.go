package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	c := NewDoubleArrayColumn("da1", "", 2, []float64{1, 2}, []float64{3, 4})
	n := c.Clone()
	n.DoubleArrays[0][0] = 100

	assert.Equal(t, 1.0, c.DoubleArrays[0][0], "original should not change")
	assert.True(t, c.SameHeader(n))
}

func TestValidateArraySize(t *testing.T) {
	c := NewDoubleArrayColumn("da1", "", 3, []float64{1, 2, 3}, []float64{1})
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrArraySize), "expected ErrArraySize, got %v", err)

	c = NewLongArrayColumn("la", "", 1, []int64{1})
	assert.Nil(t, c.Validate())
}

func TestAppendCellAndSlice(t *testing.T) {
	c := NewLongColumn("id", "", 1, 2, 3, 4)
	s := c.Slice(1, 3)
	assert.Equal(t, []int64{2, 3}, s.Longs)

	// stop past the end is clamped
	s = c.Slice(2, 10)
	assert.Equal(t, []int64{3, 4}, s.Longs)

	d := NewDoubleArrayColumn("da", "", 2)
	assert.Nil(t, d.AppendCell(Cell{DA: []float64{1, 2}}))
	assert.NotNil(t, d.AppendCell(Cell{DA: []float64{1}}))
	assert.Equal(t, 1, d.Len())
}

func TestCheckAgainst(t *testing.T) {
	headers := []*Column{NewLongColumn("id", ""), NewDoubleArrayColumn("da", "", 2)}

	n, err := CheckAgainst(headers, []*Column{
		NewLongColumn("id", "", 1, 2),
		NewDoubleArrayColumn("da", "", 2, []float64{1, 2}, []float64{3, 4}),
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, n)

	_, err = CheckAgainst(headers, []*Column{NewLongColumn("id", "", 1)})
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = CheckAgainst(headers, []*Column{
		NewLongColumn("id", "", 1, 2),
		NewDoubleArrayColumn("da", "", 2, []float64{1, 2}),
	})
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = CheckAgainst(headers, []*Column{
		NewLongColumn("id", "", 1),
		NewDoubleArrayColumn("other", "", 2, []float64{1, 2}),
	})
	assert.True(t, errors.Is(err, ErrKindMismatch))
}

func TestRows(t *testing.T) {
	cols := []*Column{NewLongColumn("id", "", 7, 8), NewBoolColumn("b", "", true, false)}
	rows, err := Rows(cols, 2)
	require.Nil(t, err)
	assert.Equal(t, int64(8), rows[1][0].L)
	assert.Equal(t, true, rows[0][1].B)
	assert.Equal(t, false, rows[1][1].B)
}

func TestRowsShortColumn(t *testing.T) {
	cols := []*Column{NewLongColumn("id", "", 7, 8), NewBoolColumn("b", "", true)}
	_, err := Rows(cols, 2)
	assert.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)
}

func TestCell(t *testing.T) {
	c := NewDoubleArrayColumn("da", "", 2, []float64{1, 2}, []float64{3})

	cell, err := c.Cell(0)
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2}, cell.DA)

	_, err = c.Cell(1)
	assert.True(t, errors.Is(err, ErrArraySize), "got %v", err)

	_, err = c.Cell(2)
	assert.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)
	_, err = c.Cell(-1)
	assert.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)

	l := NewLongColumn("id", "", 5)
	cell, err = l.Cell(0)
	require.Nil(t, err)
	assert.Equal(t, int64(5), cell.L)

	bad := &Column{Name: "x", Kind: Kind(99)}
	_, err = bad.Cell(0)
	assert.NotNil(t, err)
}
