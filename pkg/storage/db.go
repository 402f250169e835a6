package storage

import (
	"context"
	"errors"
	"time"

	"github.com/kpfaulkner/featuretables/pkg/table"
)

var (
	ErrNotFound           = errors.New("key not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrNotInitialized     = errors.New("table not initialized")
	ErrAlreadyInitialized = errors.New("table already initialized")
	ErrInvalidColumn      = errors.New("invalid column index")
	ErrInvalidRange       = errors.New("invalid row range")
	ErrInvalidHeaders     = errors.New("invalid table headers")
	ErrDisabled           = errors.New("tables not enabled")
	ErrClosed             = errors.New("db closed")
)

// TableInfo describes a stored table.
type TableInfo struct {
	ID          int64     `msgpack:"id"`
	Name        string    `msgpack:"name"`
	Created     time.Time `msgpack:"created"`
	Rows        int64     `msgpack:"rows"`
	Initialized bool      `msgpack:"init"`
}

// DB is the array-table service. Tables are created empty, initialised once
// with their column headers and then only ever appended to.
type DB interface {

	// Enabled reports whether tables can be used at all.
	Enabled(ctx context.Context) (bool, error)

	CreateTable(ctx context.Context, name string) (TableInfo, error)

	// FindTables returns all tables with the given name, ordered by ID.
	FindTables(ctx context.Context, name string) ([]TableInfo, error)
	GetTable(ctx context.Context, id int64) (TableInfo, error)
	DeleteTables(ctx context.Context, ids []int64) error

	Initialize(ctx context.Context, id int64, headers []*table.Column) error
	Headers(ctx context.Context, id int64) ([]*table.Column, error)
	NumberOfRows(ctx context.Context, id int64) (int64, error)

	// Read returns colNumbers (in that order) for rows [start, stop).
	Read(ctx context.Context, id int64, colNumbers []int, start int64, stop int64) (*table.Data, error)

	// ReadCoordinates returns all columns for the given rows.
	ReadCoordinates(ctx context.Context, id int64, rowNumbers []int64) (*table.Data, error)

	// GetWhereList returns the rows in [start, stop) matching condition.
	GetWhereList(ctx context.Context, id int64, condition string, vars map[string]any, start int64, stop int64) ([]int64, error)

	// AddData appends rows. Either all rows are added or none.
	AddData(ctx context.Context, id int64, cols []*table.Column) error

	Close() error
}
