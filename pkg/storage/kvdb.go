package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kpfaulkner/featuretables/pkg/query"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

var seqKey = []byte("s/tables")

// tableMeta is stored under t/<id>/m
type tableMeta struct {
	Info    TableInfo       `msgpack:"info"`
	Headers []*table.Column `msgpack:"headers"`
}

// KVDB implements the DB interface on top of any KV engine.
//
// Layout:
//
//	s/tables          last allocated table id
//	t/<id>/m          table metadata and headers
//	t/<id>/r/<row>    one row of cells
//	n/<name>\0<id>    name index
type KVDB struct {
	kv KV

	// single writer, many readers
	lock   sync.RWMutex
	closed bool
}

// NewKVDB creates a table DB using kv for storage.
func NewKVDB(kv KV) *KVDB {
	db := KVDB{}
	db.kv = kv
	return &db
}

func be64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func tablePrefix(id int64) []byte {
	return append(append([]byte("t/"), be64(id)...), '/')
}

func metaKey(id int64) []byte {
	return append(tablePrefix(id), 'm')
}

func rowPrefix(id int64) []byte {
	return append(tablePrefix(id), 'r', '/')
}

func rowKey(id int64, row int64) []byte {
	return append(rowPrefix(id), be64(row)...)
}

func namePrefix(name string) []byte {
	return append([]byte("n/"+name), 0)
}

func nameKey(name string, id int64) []byte {
	return append(namePrefix(name), be64(id)...)
}

func (db *KVDB) Enabled(ctx context.Context) (bool, error) {
	if d, ok := db.kv.(disabler); ok && d.Disabled() {
		return false, nil
	}
	db.lock.RLock()
	defer db.lock.RUnlock()
	return !db.closed, nil
}

func (db *KVDB) checkOpen() error {
	if db.closed {
		return ErrClosed
	}
	return nil
}

func (db *KVDB) getMeta(id int64) (*tableMeta, error) {
	data, err := db.kv.Get(metaKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("table %d: %w", id, ErrTableNotFound)
		}
		return nil, err
	}
	var meta tableMeta
	if err := msgpack.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding table %d: %w", id, err)
	}
	return &meta, nil
}

func (db *KVDB) getInitializedMeta(id int64) (*tableMeta, error) {
	meta, err := db.getMeta(id)
	if err != nil {
		return nil, err
	}
	if !meta.Info.Initialized {
		return nil, fmt.Errorf("table %d: %w", id, ErrNotInitialized)
	}
	return meta, nil
}

func encodeMeta(meta *tableMeta) (KeyValue, error) {
	data, err := msgpack.Marshal(meta)
	if err != nil {
		return KeyValue{}, fmt.Errorf("encoding table %d: %w", meta.Info.ID, err)
	}
	return KeyValue{Key: metaKey(meta.Info.ID), Value: data}, nil
}

func (db *KVDB) CreateTable(ctx context.Context, name string) (TableInfo, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.checkOpen(); err != nil {
		return TableInfo{}, err
	}

	var last int64
	data, err := db.kv.Get(seqKey)
	switch {
	case err == nil && len(data) == 8:
		last = int64(binary.BigEndian.Uint64(data))
	case err == nil || errors.Is(err, ErrNotFound):
	default:
		return TableInfo{}, err
	}

	meta := tableMeta{Info: TableInfo{ID: last + 1, Name: name, Created: time.Now().UTC()}}
	kvMeta, err := encodeMeta(&meta)
	if err != nil {
		return TableInfo{}, err
	}
	err = db.kv.SetMany([]KeyValue{
		{Key: seqKey, Value: be64(meta.Info.ID)},
		kvMeta,
		{Key: nameKey(name, meta.Info.ID), Value: []byte{}},
	})
	if err != nil {
		log.Errorf("unable to create table %q: %v", name, err)
		return TableInfo{}, err
	}

	log.Debugf("created table %q (%d)", name, meta.Info.ID)
	return meta.Info, nil
}

func (db *KVDB) FindTables(ctx context.Context, name string) ([]TableInfo, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	prefix := namePrefix(name)
	var ids []int64
	err := db.kv.Scan(prefix, prefixEnd(prefix), func(key []byte, value []byte) error {
		ids = append(ids, int64(binary.BigEndian.Uint64(key[len(prefix):])))
		return nil
	})
	if err != nil {
		return nil, err
	}

	infos := make([]TableInfo, 0, len(ids))
	for _, id := range ids {
		meta, err := db.getMeta(id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, meta.Info)
	}
	return infos, nil
}

func (db *KVDB) GetTable(ctx context.Context, id int64) (TableInfo, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return TableInfo{}, err
	}

	meta, err := db.getMeta(id)
	if err != nil {
		return TableInfo{}, err
	}
	return meta.Info, nil
}

func (db *KVDB) DeleteTables(ctx context.Context, ids []int64) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	var keys [][]byte
	for _, id := range ids {
		meta, err := db.getMeta(id)
		if err != nil {
			return err
		}
		keys = append(keys, nameKey(meta.Info.Name, id))
		prefix := tablePrefix(id)
		err = db.kv.Scan(prefix, prefixEnd(prefix), func(key []byte, value []byte) error {
			keys = append(keys, copyBytes(key))
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := db.kv.DeleteMany(keys); err != nil {
		log.Errorf("unable to delete tables %v: %v", ids, err)
		return err
	}
	log.Debugf("deleted tables %v", ids)
	return nil
}

func (db *KVDB) Initialize(ctx context.Context, id int64, headers []*table.Column) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	meta, err := db.getMeta(id)
	if err != nil {
		return err
	}
	if meta.Info.Initialized {
		return fmt.Errorf("table %d: %w", id, ErrAlreadyInitialized)
	}
	if len(headers) == 0 {
		return fmt.Errorf("no columns: %w", ErrInvalidHeaders)
	}
	seen := make(map[string]bool)
	for _, h := range headers {
		if h.Name == "" || seen[h.Name] {
			return fmt.Errorf("column name %q empty or repeated: %w", h.Name, ErrInvalidHeaders)
		}
		if h.IsArray() && h.Size <= 0 {
			return fmt.Errorf("array column %q needs a size: %w", h.Name, ErrInvalidHeaders)
		}
		seen[h.Name] = true
	}

	meta.Headers = table.Headers(headers)
	meta.Info.Initialized = true
	kvMeta, err := encodeMeta(meta)
	if err != nil {
		return err
	}
	return db.kv.Set(kvMeta.Key, kvMeta.Value)
}

func (db *KVDB) Headers(ctx context.Context, id int64) ([]*table.Column, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := db.getInitializedMeta(id)
	if err != nil {
		return nil, err
	}
	return meta.Headers, nil
}

func (db *KVDB) NumberOfRows(ctx context.Context, id int64) (int64, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return 0, err
	}

	meta, err := db.getMeta(id)
	if err != nil {
		return 0, err
	}
	return meta.Info.Rows, nil
}

func clampRange(start int64, stop int64, rows int64) (int64, int64, error) {
	if start < 0 || stop < start {
		return 0, 0, fmt.Errorf("[%d, %d): %w", start, stop, ErrInvalidRange)
	}
	if stop > rows {
		stop = rows
	}
	if start > stop {
		start = stop
	}
	return start, stop, nil
}

// scanRows calls fn for each row in [start, stop).
func (db *KVDB) scanRows(id int64, start int64, stop int64, fn func(row int64, cells []table.Cell) error) error {
	if start >= stop {
		return nil
	}
	prefix := rowPrefix(id)
	return db.kv.Scan(rowKey(id, start), rowKey(id, stop), func(key []byte, value []byte) error {
		var cells []table.Cell
		if err := msgpack.Unmarshal(value, &cells); err != nil {
			return fmt.Errorf("decoding row %x: %w", key, err)
		}
		return fn(int64(binary.BigEndian.Uint64(key[len(prefix):])), cells)
	})
}

func (db *KVDB) Read(ctx context.Context, id int64, colNumbers []int, start int64, stop int64) (*table.Data, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := db.getInitializedMeta(id)
	if err != nil {
		return nil, err
	}
	cols := make([]*table.Column, len(colNumbers))
	for i, c := range colNumbers {
		if c < 0 || c >= len(meta.Headers) {
			return nil, fmt.Errorf("column %d of %d: %w", c, len(meta.Headers), ErrInvalidColumn)
		}
		cols[i] = meta.Headers[c].Header()
	}
	start, stop, err = clampRange(start, stop, meta.Info.Rows)
	if err != nil {
		return nil, err
	}

	data := table.Data{Columns: cols, LastModified: meta.Info.Created}
	err = db.scanRows(id, start, stop, func(row int64, cells []table.Cell) error {
		data.RowNumbers = append(data.RowNumbers, row)
		for i, c := range colNumbers {
			if err := cols[i].AppendCell(cells[c]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("unable to read table %d: %v", id, err)
		return nil, err
	}
	return &data, nil
}

func (db *KVDB) ReadCoordinates(ctx context.Context, id int64, rowNumbers []int64) (*table.Data, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := db.getInitializedMeta(id)
	if err != nil {
		return nil, err
	}
	data := table.Data{Columns: table.Headers(meta.Headers), LastModified: meta.Info.Created}
	for _, r := range rowNumbers {
		if r < 0 || r >= meta.Info.Rows {
			return nil, fmt.Errorf("row %d of %d: %w", r, meta.Info.Rows, ErrInvalidRange)
		}
		value, err := db.kv.Get(rowKey(id, r))
		if err != nil {
			return nil, err
		}
		var cells []table.Cell
		if err := msgpack.Unmarshal(value, &cells); err != nil {
			return nil, fmt.Errorf("decoding row %d: %w", r, err)
		}
		for i, c := range data.Columns {
			if err := c.AppendCell(cells[i]); err != nil {
				return nil, err
			}
		}
		data.RowNumbers = append(data.RowNumbers, r)
	}
	return &data, nil
}

func (db *KVDB) GetWhereList(ctx context.Context, id int64, condition string, vars map[string]any, start int64, stop int64) ([]int64, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := db.getInitializedMeta(id)
	if err != nil {
		return nil, err
	}
	cond, err := query.Compile(meta.Headers, condition, vars)
	if err != nil {
		return nil, err
	}
	start, stop, err = clampRange(start, stop, meta.Info.Rows)
	if err != nil {
		return nil, err
	}

	rows := []int64{}
	err = db.scanRows(id, start, stop, func(row int64, cells []table.Cell) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := cond.Matches(cells, meta.Headers, vars)
		if err != nil {
			return err
		}
		if ok {
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (db *KVDB) AddData(ctx context.Context, id int64, cols []*table.Column) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	meta, err := db.getInitializedMeta(id)
	if err != nil {
		return err
	}
	nRows, err := table.CheckAgainst(meta.Headers, cols)
	if err != nil {
		return err
	}
	if nRows == 0 {
		return nil
	}

	// rows first and metadata last, so a partly applied batch is never visible
	rows, err := table.Rows(cols, nRows)
	if err != nil {
		return err
	}
	pairs := make([]KeyValue, 0, nRows+1)
	for i, row := range rows {
		data, err := msgpack.Marshal(row)
		if err != nil {
			return fmt.Errorf("encoding row: %w", err)
		}
		pairs = append(pairs, KeyValue{Key: rowKey(id, meta.Info.Rows+int64(i)), Value: data})
	}
	meta.Info.Rows += int64(nRows)
	kvMeta, err := encodeMeta(meta)
	if err != nil {
		return err
	}
	pairs = append(pairs, kvMeta)

	if err := db.kv.SetMany(pairs); err != nil {
		log.Errorf("unable to add %d rows to table %d: %v", nRows, id, err)
		return err
	}
	return nil
}

func (db *KVDB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.kv.Close()
}
