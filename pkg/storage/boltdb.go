package storage

import (
	"bytes"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("featuretables")

// BoltKV implements the KV interface using a single bbolt bucket.
type BoltKV struct {
	bdb *bolt.DB
}

// NewBoltKV opens (or creates) the bolt file at path.
func NewBoltKV(path string) (*BoltKV, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Errorf("unable to open bolt at %s: %v", path, err)
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	dbs := BoltKV{}
	dbs.bdb = db
	return &dbs, nil
}

func (db *BoltKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := db.bdb.View(func(tx *bolt.Tx) error {
		// only valid for the life of the transaction
		value = copyBytes(tx.Bucket(boltBucket).Get(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrNotFound
	}
	return value, nil
}

func (db *BoltKV) Set(key []byte, value []byte) error {
	return db.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (db *BoltKV) SetMany(pairs []KeyValue) error {
	return db.bdb.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, p := range pairs {
			if err := b.Put(p.Key, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltKV) Delete(key []byte) error {
	return db.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

func (db *BoltKV) DeleteMany(keys [][]byte) error {
	return db.bdb.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	return db.bdb.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(lower); k != nil; k, v = c.Next() {
			if upper != nil && bytes.Compare(k, upper) >= 0 {
				break
			}
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltKV) Close() error {
	return db.bdb.Close()
}
