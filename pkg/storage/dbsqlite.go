package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteKV implements the KV interface using SQLite
type SQLiteKV struct {
	db  *sql.DB
	ctx context.Context
}

func NewSQLiteKV(filename string) (*SQLiteKV, error) {
	dbs := SQLiteKV{}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("new sqlitedb: %w", err)
	}

	// sqlite only allows one writer anyway
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	dbs.db = db
	dbs.ctx = ctx

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create table: %w", err)
	}
	return &dbs, nil
}

// createTables creates the single key/value table.
func createTables(ctx context.Context, db *sql.DB) error {

	_, err := db.ExecContext(ctx, `create table if not exists kv (k blob primary key, v blob not null) without rowid`)
	if err != nil {
		log.Errorf("unable to create kv table: %v", err)
		return err
	}
	return nil
}

func (db *SQLiteKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := db.db.QueryRowContext(db.ctx, `select v from kv where k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (db *SQLiteKV) Set(key []byte, value []byte) error {
	_, err := db.db.ExecContext(db.ctx, `insert or replace into kv (k, v) values (?, ?)`, key, value)
	return err
}

func (db *SQLiteKV) SetMany(pairs []KeyValue) error {
	tx, err := db.db.BeginTx(db.ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(db.ctx, `insert or replace into kv (k, v) values (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, p := range pairs {
		if _, err := stmt.ExecContext(db.ctx, p.Key, p.Value); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (db *SQLiteKV) Delete(key []byte) error {
	_, err := db.db.ExecContext(db.ctx, `delete from kv where k = ?`, key)
	return err
}

func (db *SQLiteKV) DeleteMany(keys [][]byte) error {
	tx, err := db.db.BeginTx(db.ctx, nil)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(db.ctx, `delete from kv where k = ?`, k); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (db *SQLiteKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	var rows *sql.Rows
	var err error
	if upper == nil {
		rows, err = db.db.QueryContext(db.ctx, `select k, v from kv where k >= ? order by k`, lower)
	} else {
		rows, err = db.db.QueryContext(db.ctx, `select k, v from kv where k >= ? and k < ? order by k`, lower, upper)
	}
	if err != nil {
		return err
	}

	// collect first, the single connection is busy until rows are closed
	var pairs []KeyValue
	for rows.Next() {
		var p KeyValue
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := fn(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (db *SQLiteKV) Close() error {
	return db.db.Close()
}
