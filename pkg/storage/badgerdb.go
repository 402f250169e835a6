package storage

import (
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
)

// BadgerKV implements the KV interface using BadgerDB
type BadgerKV struct {
	bdb  *badger.DB
	done chan struct{}
}

// NewBadgerKV creates new BadgerDB connection
func NewBadgerKV(dir string) (*BadgerKV, error) {
	dbs := BadgerKV{}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		log.Errorf("unable to open badger at %s: %v", dir, err)
		return nil, err
	}
	dbs.bdb = db
	dbs.done = make(chan struct{})
	go dbs.startGC()
	return &dbs, nil
}

func (db *BadgerKV) startGC() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-db.done:
			return
		case <-ticker.C:
		}
		log.Debug("GC ticker")
	again:
		err := db.bdb.RunValueLogGC(0.7)
		if err == nil {
			goto again
		}
	}
}

func (db *BadgerKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := db.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (db *BadgerKV) Set(key []byte, value []byte) error {
	return db.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// SetMany writes pairs in a single transaction, splitting it only when badger
// reports the transaction as too big. Callers put their commit marker last.
func (db *BadgerKV) SetMany(pairs []KeyValue) error {
	txn := db.bdb.NewTransaction(true)
	defer func() { txn.Discard() }()

	for _, p := range pairs {
		err := txn.Set(p.Key, p.Value)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return err
			}
			txn = db.bdb.NewTransaction(true)
			err = txn.Set(p.Key, p.Value)
		}
		if err != nil {
			log.Errorf("unable to set key: %v", err)
			return err
		}
	}
	return txn.Commit()
}

func (db *BadgerKV) Delete(key []byte) error {
	return db.bdb.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (db *BadgerKV) DeleteMany(keys [][]byte) error {
	wb := db.bdb.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (db *BadgerKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	return db.bdb.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(lower); it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			if upper != nil && string(k) >= string(upper) {
				break
			}
			err := item.Value(func(v []byte) error {
				return fn(k, v)
			})
			if err != nil {
				log.Errorf("unable to scan: %v", err)
				return err
			}
		}
		return nil
	})
}

func (db *BadgerKV) Close() error {
	close(db.done)
	return db.bdb.Close()
}
