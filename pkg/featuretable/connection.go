// Package featuretable wraps a table in the feature convention: an id column
// followed by double array columns, each paired with a bool column marking
// whether the cell holds a value.
package featuretable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/client"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	tbl "github.com/kpfaulkner/featuretables/pkg/table"
)

var (
	ErrTablesDisabled = errors.New("tables not enabled")
	ErrNoTable        = errors.New("no table found")
	ErrMultipleTables = errors.New("multiple tables with name")
	ErrNotOpen        = errors.New("no open table")
)

// dumpBatch is the number of rows DumpTable reads at a time.
const dumpBatch = 1000

// TableConnection is a handle on a named table in a storage.DB.
type TableConnection struct {
	TableName string
	TableID   int64

	db     storage.DB
	ownsDB bool

	// set once a table has been opened or created
	open bool

	// cached headers of the open table, nil until initialised
	headers []*tbl.Column
}

// New creates a connection using an existing DB. The DB is not closed by
// Close.
func New(ctx context.Context, db storage.DB, tableName string, tableID int64) (*TableConnection, error) {
	enabled, err := db.Enabled(ctx)
	if err != nil {
		log.Errorf("unable to check tables service: %v", err)
		return nil, err
	}
	if !enabled {
		return nil, ErrTablesDisabled
	}

	tc := TableConnection{}
	tc.TableName = tableName
	tc.TableID = tableID
	tc.db = db
	return &tc, nil
}

// Connect dials a Tables server and creates a connection that owns the
// client.
func Connect(ctx context.Context, addr string, tableName string, tableID int64) (*TableConnection, error) {
	c, err := client.NewClient(addr)
	if err != nil {
		return nil, err
	}
	tc, err := New(ctx, c, tableName, tableID)
	if err != nil {
		c.Close()
		return nil, err
	}
	tc.ownsDB = true
	return tc, nil
}

// DB returns the underlying store.
func (tc *TableConnection) DB() storage.DB {
	return tc.db
}

// OpenTable opens an existing table by id, by name, or by both. With neither
// the connection's own TableID and TableName are used. Opening by name alone
// fails if the name is not unique.
func (tc *TableConnection) OpenTable(ctx context.Context, tableID int64, tableName string) (storage.TableInfo, error) {
	if tableID == 0 && tableName == "" {
		tableID = tc.TableID
		tableName = tc.TableName
	}

	var info storage.TableInfo
	if tableID == 0 {
		if tableName == "" {
			tableName = tc.TableName
		}
		found, err := tc.db.FindTables(ctx, tableName)
		if err != nil {
			return info, err
		}
		if len(found) > 1 {
			return info, fmt.Errorf("%w: %s", ErrMultipleTables, tableName)
		}
		if len(found) == 0 {
			return info, fmt.Errorf("%w with name: %s", ErrNoTable, tableName)
		}
		info = found[0]
	} else {
		var err error
		info, err = tc.db.GetTable(ctx, tableID)
		if errors.Is(err, storage.ErrTableNotFound) || (err == nil && tableName != "" && info.Name != tableName) {
			return storage.TableInfo{}, fmt.Errorf("%w with name: %s id: %d", ErrNoTable, tableName, tableID)
		}
		if err != nil {
			return info, err
		}
	}

	tc.TableID = info.ID
	tc.TableName = info.Name
	tc.open = true
	tc.headers = nil

	if info.Initialized {
		headers, err := tc.loadHeaders(ctx)
		if err != nil {
			return info, err
		}
		log.Infof("Opened table name:%s id:%d with %d rows %d columns", info.Name, info.ID, info.Rows, len(headers))
	} else {
		log.Infof("Opened table name:%s id:%d", info.Name, info.ID)
	}
	return info, nil
}

// NewTable creates a new uninitialised table called TableName and makes it
// the open table.
func (tc *TableConnection) NewTable(ctx context.Context) (storage.TableInfo, error) {
	info, err := tc.db.CreateTable(ctx, tc.TableName)
	if err != nil {
		log.Errorf("unable to create table %s: %v", tc.TableName, err)
		return info, err
	}
	tc.TableID = info.ID
	tc.open = true
	tc.headers = nil
	return info, nil
}

// DeleteAllTables deletes every table called TableName and returns their ids.
func (tc *TableConnection) DeleteAllTables(ctx context.Context) ([]int64, error) {
	found, err := tc.db.FindTables(ctx, tc.TableName)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(found))
	for i, t := range found {
		ids[i] = t.ID
	}
	log.Infof("Deleting ids:%v", ids)
	if len(ids) == 0 {
		return ids, nil
	}
	if err := tc.db.DeleteTables(ctx, ids); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if id == tc.TableID {
			tc.open = false
			tc.headers = nil
		}
	}
	return ids, nil
}

// loadHeaders fetches and caches the headers of the open table.
func (tc *TableConnection) loadHeaders(ctx context.Context) ([]*tbl.Column, error) {
	if !tc.open {
		return nil, ErrNotOpen
	}
	if tc.headers != nil {
		return tc.headers, nil
	}
	headers, err := tc.db.Headers(ctx, tc.TableID)
	if err != nil {
		return nil, err
	}
	tc.headers = headers
	return headers, nil
}

// Headers returns empty copies of every column of the open table.
func (tc *TableConnection) Headers(ctx context.Context) ([]*tbl.Column, error) {
	headers, err := tc.loadHeaders(ctx)
	if err != nil {
		return nil, err
	}
	return tbl.Headers(headers), nil
}

// DumpTable writes every row of the open table to w.
func (tc *TableConnection) DumpTable(ctx context.Context, w io.Writer) error {
	headers, err := tc.loadHeaders(ctx)
	if err != nil {
		return err
	}
	nRows, err := tc.db.NumberOfRows(ctx, tc.TableID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	header := make(table.Row, len(headers))
	colNumbers := make([]int, len(headers))
	for i, h := range headers {
		header[i] = h.Name
		colNumbers[i] = i
	}
	t.AppendHeader(header)

	for start := int64(0); start < nRows; start += dumpBatch {
		data, err := tc.db.Read(ctx, tc.TableID, colNumbers, start, start+dumpBatch)
		if err != nil {
			return err
		}
		n := 0
		if len(data.Columns) > 0 {
			n = data.Columns[0].Len()
		}
		for r := 0; r < n; r++ {
			row := make(table.Row, len(data.Columns))
			for c, col := range data.Columns {
				row[c] = FormatCell(col, r)
			}
			t.AppendRow(row)
		}
	}
	t.Render()
	return nil
}

// FormatCell renders one value for display. Doubles use 2 decimals.
func FormatCell(col *tbl.Column, row int) string {
	switch col.Kind {
	case tbl.Long:
		return strconv.FormatInt(col.Longs[row], 10)
	case tbl.Bool:
		return strconv.FormatBool(col.Bools[row])
	case tbl.Double:
		return fmt.Sprintf("%.2f", col.Doubles[row])
	case tbl.String:
		return col.Strings[row]
	case tbl.LongArray:
		parts := make([]string, len(col.LongArrays[row]))
		for i, v := range col.LongArrays[row] {
			parts[i] = strconv.FormatInt(v, 10)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case tbl.DoubleArray:
		parts := make([]string, len(col.DoubleArrays[row]))
		for i, v := range col.DoubleArrays[row] {
			parts[i] = fmt.Sprintf("%.2f", v)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return ""
}

// Close forgets the open table and closes the DB if the connection created it.
func (tc *TableConnection) Close() error {
	log.Debugf("Closing connection")
	tc.open = false
	tc.headers = nil
	if tc.ownsDB {
		return tc.db.Close()
	}
	return nil
}
