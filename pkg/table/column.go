package table

import (
	"errors"
	"fmt"
)

// Kind is the type of values a column holds.
type Kind int8

const (
	Long Kind = iota + 1
	Bool
	Double
	String
	LongArray
	DoubleArray
)

var (
	ErrKindMismatch   = errors.New("column kind mismatch")
	ErrArraySize      = errors.New("array cell has wrong size")
	ErrLengthMismatch = errors.New("columns have different lengths")
)

func (k Kind) String() string {
	switch k {
	case Long:
		return "LongColumn"
	case Bool:
		return "BoolColumn"
	case Double:
		return "DoubleColumn"
	case String:
		return "StringColumn"
	case LongArray:
		return "LongArrayColumn"
	case DoubleArray:
		return "DoubleArrayColumn"
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// IsArray reports whether cells of this kind are fixed width arrays.
func (k Kind) IsArray() bool {
	return k == LongArray || k == DoubleArray
}

// Column is a named, typed column of values. Only the value slice matching
// Kind is populated. A column with no values is a header.
type Column struct {
	Name        string `msgpack:"name"`
	Description string `msgpack:"desc,omitempty"`
	Kind        Kind   `msgpack:"kind"`

	// Size is the width of every cell for array kinds, 0 otherwise.
	Size int `msgpack:"size,omitempty"`

	Longs        []int64     `msgpack:"l,omitempty"`
	Bools        []bool      `msgpack:"b,omitempty"`
	Doubles      []float64   `msgpack:"d,omitempty"`
	Strings      []string    `msgpack:"s,omitempty"`
	LongArrays   [][]int64   `msgpack:"la,omitempty"`
	DoubleArrays [][]float64 `msgpack:"da,omitempty"`
}

func NewLongColumn(name string, description string, values ...int64) *Column {
	return &Column{Name: name, Description: description, Kind: Long, Longs: values}
}

func NewBoolColumn(name string, description string, values ...bool) *Column {
	return &Column{Name: name, Description: description, Kind: Bool, Bools: values}
}

func NewDoubleColumn(name string, description string, values ...float64) *Column {
	return &Column{Name: name, Description: description, Kind: Double, Doubles: values}
}

func NewStringColumn(name string, description string, values ...string) *Column {
	return &Column{Name: name, Description: description, Kind: String, Strings: values}
}

func NewLongArrayColumn(name string, description string, size int, values ...[]int64) *Column {
	return &Column{Name: name, Description: description, Kind: LongArray, Size: size, LongArrays: values}
}

func NewDoubleArrayColumn(name string, description string, size int, values ...[]float64) *Column {
	return &Column{Name: name, Description: description, Kind: DoubleArray, Size: size, DoubleArrays: values}
}

// IsArray reports whether the column holds array cells.
func (c *Column) IsArray() bool {
	return c.Kind.IsArray()
}

// Len returns the number of values (rows) in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Long:
		return len(c.Longs)
	case Bool:
		return len(c.Bools)
	case Double:
		return len(c.Doubles)
	case String:
		return len(c.Strings)
	case LongArray:
		return len(c.LongArrays)
	case DoubleArray:
		return len(c.DoubleArrays)
	}
	return 0
}

// Header returns a copy of the column without any values.
func (c *Column) Header() *Column {
	return &Column{Name: c.Name, Description: c.Description, Kind: c.Kind, Size: c.Size}
}

// SameHeader reports whether both columns share name, kind and width.
func (c *Column) SameHeader(o *Column) bool {
	return c.Name == o.Name && c.Kind == o.Kind && c.Size == o.Size
}

// Reset drops all values, leaving the header.
func (c *Column) Reset() {
	c.Longs = nil
	c.Bools = nil
	c.Doubles = nil
	c.Strings = nil
	c.LongArrays = nil
	c.DoubleArrays = nil
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	n := c.Header()
	if c.Longs != nil {
		n.Longs = append([]int64{}, c.Longs...)
	}
	if c.Bools != nil {
		n.Bools = append([]bool{}, c.Bools...)
	}
	if c.Doubles != nil {
		n.Doubles = append([]float64{}, c.Doubles...)
	}
	if c.Strings != nil {
		n.Strings = append([]string{}, c.Strings...)
	}
	if c.LongArrays != nil {
		n.LongArrays = make([][]int64, len(c.LongArrays))
		for i, v := range c.LongArrays {
			n.LongArrays[i] = append([]int64{}, v...)
		}
	}
	if c.DoubleArrays != nil {
		n.DoubleArrays = make([][]float64, len(c.DoubleArrays))
		for i, v := range c.DoubleArrays {
			n.DoubleArrays[i] = append([]float64{}, v...)
		}
	}
	return n
}

// Validate checks every array cell is exactly Size wide.
func (c *Column) Validate() error {
	switch c.Kind {
	case LongArray:
		for i, v := range c.LongArrays {
			if len(v) != c.Size {
				return fmt.Errorf("%s row %d has %d values, expected %d: %w", c.Name, i, len(v), c.Size, ErrArraySize)
			}
		}
	case DoubleArray:
		for i, v := range c.DoubleArrays {
			if len(v) != c.Size {
				return fmt.Errorf("%s row %d has %d values, expected %d: %w", c.Name, i, len(v), c.Size, ErrArraySize)
			}
		}
	case Long, Bool, Double, String:
	default:
		return fmt.Errorf("%s: unknown kind %v: %w", c.Name, c.Kind, ErrKindMismatch)
	}
	return nil
}

// Cell returns the value at row i. Array cells must match Size.
func (c *Column) Cell(i int) (Cell, error) {
	if i < 0 || i >= c.Len() {
		return Cell{}, fmt.Errorf("%s: row %d of %d: %w", c.Name, i, c.Len(), ErrLengthMismatch)
	}
	switch c.Kind {
	case Long:
		return Cell{L: c.Longs[i]}, nil
	case Bool:
		return Cell{B: c.Bools[i]}, nil
	case Double:
		return Cell{D: c.Doubles[i]}, nil
	case String:
		return Cell{S: c.Strings[i]}, nil
	case LongArray:
		if len(c.LongArrays[i]) != c.Size {
			return Cell{}, fmt.Errorf("%s row %d has %d values, expected %d: %w", c.Name, i, len(c.LongArrays[i]), c.Size, ErrArraySize)
		}
		return Cell{LA: c.LongArrays[i]}, nil
	case DoubleArray:
		if len(c.DoubleArrays[i]) != c.Size {
			return Cell{}, fmt.Errorf("%s row %d has %d values, expected %d: %w", c.Name, i, len(c.DoubleArrays[i]), c.Size, ErrArraySize)
		}
		return Cell{DA: c.DoubleArrays[i]}, nil
	}
	return Cell{}, fmt.Errorf("%s: unknown kind %v: %w", c.Name, c.Kind, ErrKindMismatch)
}

// AppendCell appends a value read from storage. Array cells must match Size.
func (c *Column) AppendCell(cell Cell) error {
	switch c.Kind {
	case Long:
		c.Longs = append(c.Longs, cell.L)
	case Bool:
		c.Bools = append(c.Bools, cell.B)
	case Double:
		c.Doubles = append(c.Doubles, cell.D)
	case String:
		c.Strings = append(c.Strings, cell.S)
	case LongArray:
		if len(cell.LA) != c.Size {
			return fmt.Errorf("%s: %d values, expected %d: %w", c.Name, len(cell.LA), c.Size, ErrArraySize)
		}
		c.LongArrays = append(c.LongArrays, cell.LA)
	case DoubleArray:
		if len(cell.DA) != c.Size {
			return fmt.Errorf("%s: %d values, expected %d: %w", c.Name, len(cell.DA), c.Size, ErrArraySize)
		}
		c.DoubleArrays = append(c.DoubleArrays, cell.DA)
	default:
		return fmt.Errorf("%s: unknown kind %v: %w", c.Name, c.Kind, ErrKindMismatch)
	}
	return nil
}

// Slice returns a copy of the column holding rows [start, stop).
func (c *Column) Slice(start int, stop int) *Column {
	n := c.Header()
	for i := start; i < stop && i < c.Len(); i++ {
		cell, err := c.Cell(i)
		if err != nil {
			// rows that don't fit the header are left out
			continue
		}
		_ = n.AppendCell(cell)
	}
	return n
}

// Cell is a single typed value. It is the unit rows are stored in.
type Cell struct {
	L  int64     `msgpack:"l,omitempty"`
	B  bool      `msgpack:"b,omitempty"`
	D  float64   `msgpack:"d,omitempty"`
	S  string    `msgpack:"s,omitempty"`
	LA []int64   `msgpack:"la,omitempty"`
	DA []float64 `msgpack:"da,omitempty"`
}
