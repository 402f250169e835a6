package storage

import (
	"errors"
	"io"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"
)

// PebbleMinimal is the minimal interface we use from Pebble
// Interface to help mock this out for testing.
type PebbleMinimal interface {
	Get(key []byte) ([]byte, io.Closer, error)
	Set(key, value []byte, opts *pebble.WriteOptions) error
	Delete(key []byte, opts *pebble.WriteOptions) error
	NewBatch() *pebble.Batch
	NewIter(o *pebble.IterOptions) *pebble.Iterator
	Close() error
}

// PebbleKV implements the KV interface using Pebble
type PebbleKV struct {
	pdb PebbleMinimal
}

func NewPebbleClient(dir string) (*pebble.DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		log.Errorf("unable to open pebble at %s: %v", dir, err)
		return nil, err
	}

	return db, nil
}

// NewPebbleKV creates new Pebble KV
func NewPebbleKV(pdb PebbleMinimal) *PebbleKV {
	dbs := PebbleKV{}
	dbs.pdb = pdb
	return &dbs
}

func (db *PebbleKV) Get(key []byte) ([]byte, error) {
	v, closer, err := db.pdb.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return copyBytes(v), nil
}

func (db *PebbleKV) Set(key []byte, value []byte) error {
	return db.pdb.Set(key, value, pebble.Sync)
}

func (db *PebbleKV) SetMany(pairs []KeyValue) error {
	batch := db.pdb.NewBatch()
	defer batch.Close()
	for _, p := range pairs {
		if err := batch.Set(p.Key, p.Value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (db *PebbleKV) Delete(key []byte) error {
	return db.pdb.Delete(key, pebble.Sync)
}

func (db *PebbleKV) DeleteMany(keys [][]byte) error {
	batch := db.pdb.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Delete(k, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (db *PebbleKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	iter := db.pdb.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		v, err := iter.ValueAndErr()
		if err != nil {
			return err
		}
		if err := fn(iter.Key(), v); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (db *PebbleKV) Close() error {
	return db.pdb.Close()
}
