// Package common holds helpers shared by the binaries.
package common

import (
	"fmt"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/client"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

// SetLogLevel sets the logrus level from one of debug, info, warn or error.
// Anything else leaves info.
func SetLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// StoreConfig picks the engine a local DB is built on.
type StoreConfig struct {
	// Store is one of pebble, badger, bolt, sqlite, redis, memory, null or
	// remote.
	Store string

	// Path is the directory the file based engines keep their data in.
	Path string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisNamespace string

	// ServerAddr is the Tables server used by the remote store.
	ServerAddr string
}

// OpenDB opens the storage.DB described by config.
func OpenDB(config StoreConfig) (storage.DB, error) {
	var kv storage.KV
	switch config.Store {
	case "remote":
		c, err := client.NewClient(config.ServerAddr)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "pebble":
		pebbleClient, err := storage.NewPebbleClient(path.Join(config.Path, "pebbledb"))
		if err != nil {
			return nil, err
		}
		kv = storage.NewPebbleKV(pebbleClient)
	case "badger":
		badgerKV, err := storage.NewBadgerKV(path.Join(config.Path, "badgerdb"))
		if err != nil {
			return nil, err
		}
		kv = badgerKV
	case "bolt":
		boltKV, err := storage.NewBoltKV(path.Join(config.Path, "tables.bolt"))
		if err != nil {
			return nil, err
		}
		kv = boltKV
	case "sqlite":
		sqliteKV, err := storage.NewSQLiteKV(path.Join(config.Path, "tables.sqlite"))
		if err != nil {
			return nil, err
		}
		kv = sqliteKV
	case "redis":
		redisKV, err := storage.NewRedisKV(config.RedisAddr, config.RedisPassword, config.RedisDB, config.RedisNamespace)
		if err != nil {
			return nil, err
		}
		kv = redisKV
	case "memory", "":
		kv = storage.NewMemoryKV()
	case "null":
		kv = storage.NewNullKV()
	default:
		return nil, fmt.Errorf("unknown store %s", config.Store)
	}
	log.Infof("using %s store", config.Store)
	return storage.NewKVDB(kv), nil
}
