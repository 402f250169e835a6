package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/storage/storagetest"
)

func engines() map[string]storagetest.KVFactory {
	return map[string]storagetest.KVFactory{
		"Memory": func(t *testing.T) storage.KV {
			return storage.NewMemoryKV()
		},
		"Pebble": func(t *testing.T) storage.KV {
			pdb, err := storage.NewPebbleClient(filepath.Join(t.TempDir(), "pebble"))
			require.Nil(t, err)
			return storage.NewPebbleKV(pdb)
		},
		"Badger": func(t *testing.T) storage.KV {
			kv, err := storage.NewBadgerKV(filepath.Join(t.TempDir(), "badger"))
			require.Nil(t, err)
			return kv
		},
		"Bolt": func(t *testing.T) storage.KV {
			kv, err := storage.NewBoltKV(filepath.Join(t.TempDir(), "bolt.db"))
			require.Nil(t, err)
			return kv
		},
		"SQLite": func(t *testing.T) storage.KV {
			kv, err := storage.NewSQLiteKV(filepath.Join(t.TempDir(), "sqlite.db"))
			require.Nil(t, err)
			return kv
		},
	}
}

func TestEngines(t *testing.T) {
	for name, factory := range engines() {
		factory := factory
		storagetest.RunKVTests(t, name, func(t *testing.T) storage.KV {
			kv := factory(t)
			t.Cleanup(func() { kv.Close() })
			return kv
		})
	}
}

func TestKVDB(t *testing.T) {
	for name, factory := range engines() {
		factory := factory
		storagetest.RunDBTests(t, name, func(t *testing.T) storage.DB {
			return storage.NewKVDB(factory(t))
		})
	}
}

// Needs a live server, e.g. FEATURETABLES_TEST_REDIS=localhost:6379
func TestRedis(t *testing.T) {
	addr := os.Getenv("FEATURETABLES_TEST_REDIS")
	if addr == "" {
		t.Skip("FEATURETABLES_TEST_REDIS not set")
	}

	factory := func(t *testing.T) storage.KV {
		kv, err := storage.NewRedisKV(addr, "", 0, "ft-test-"+t.Name()+"/")
		require.Nil(t, err)
		return kv
	}
	storagetest.RunKVTests(t, "Redis", factory)
	storagetest.RunDBTests(t, "Redis", func(t *testing.T) storage.DB {
		return storage.NewKVDB(factory(t))
	})
}

func TestNullDisablesTables(t *testing.T) {
	db := storage.NewKVDB(storage.NewNullKV())
	enabled, err := db.Enabled(context.Background())
	assert.Nil(t, err)
	assert.False(t, enabled)
}

func TestClosedDB(t *testing.T) {
	db := storage.NewKVDB(storage.NewMemoryKV())
	require.Nil(t, db.Close())

	enabled, err := db.Enabled(context.Background())
	assert.Nil(t, err)
	assert.False(t, enabled)

	_, err = db.CreateTable(context.Background(), "x")
	assert.ErrorIs(t, err, storage.ErrClosed)

	// closing twice is fine
	assert.Nil(t, db.Close())
}

func TestReopenPebble(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pebble")
	ctx := context.Background()

	pdb, err := storage.NewPebbleClient(dir)
	require.Nil(t, err)
	db := storage.NewKVDB(storage.NewPebbleKV(pdb))
	info, err := db.CreateTable(ctx, "persist")
	require.Nil(t, err)
	require.Nil(t, db.Close())

	pdb, err = storage.NewPebbleClient(dir)
	require.Nil(t, err)
	db = storage.NewKVDB(storage.NewPebbleKV(pdb))
	defer db.Close()

	found, err := db.FindTables(ctx, "persist")
	require.Nil(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, info.ID, found[0].ID)

	// the sequence survives the reopen
	next, err := db.CreateTable(ctx, "persist")
	require.Nil(t, err)
	assert.Equal(t, info.ID+1, next.ID)
}
