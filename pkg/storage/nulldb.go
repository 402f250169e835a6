package storage

// NullKV discards everything. A table DB on top of it reports tables as
// disabled, so clients fail fast instead of silently losing data.
type NullKV struct {
}

// NewNullKV creates new NullKV
func NewNullKV() *NullKV {
	db := NullKV{}
	return &db
}

func (db *NullKV) Disabled() bool {
	return true
}

func (db *NullKV) Get(key []byte) ([]byte, error) {
	return nil, ErrNotFound
}

func (db *NullKV) Set(key []byte, value []byte) error {
	return nil
}

func (db *NullKV) SetMany(pairs []KeyValue) error {
	return nil
}

func (db *NullKV) Delete(key []byte) error {
	return nil
}

func (db *NullKV) DeleteMany(keys [][]byte) error {
	return nil
}

func (db *NullKV) Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error {
	return nil
}

func (db *NullKV) Close() error {
	return nil
}
