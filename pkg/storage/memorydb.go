package storage

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryKV keeps everything in a map. Used for tests and as a baseline.
type MemoryKV struct {
	lock sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	m := MemoryKV{}
	m.data = make(map[string][]byte)
	return &m
}

func (m *MemoryKV) Get(key []byte) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if v, ok := m.data[string(key)]; ok {
		return copyBytes(v), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryKV) Set(key []byte, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data[string(key)] = copyBytes(value)
	return nil
}

func (m *MemoryKV) SetMany(pairs []KeyValue) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, p := range pairs {
		m.data[string(p.Key)] = copyBytes(p.Value)
	}
	return nil
}

func (m *MemoryKV) Delete(key []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemoryKV) DeleteMany(keys [][]byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.data, string(k))
	}
	return nil
}

func (m *MemoryKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	m.lock.RLock()
	var keys []string
	for k := range m.data {
		kb := []byte(k)
		if bytes.Compare(kb, lower) >= 0 && (upper == nil || bytes.Compare(kb, upper) < 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	m.lock.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}
