package storage

// KV is the minimal key/value engine the table store is built on.
// Scan visits keys in [lower, upper) in byte order; a nil upper is unbounded.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error

	// SetMany writes all pairs in one batch.
	SetMany(pairs []KeyValue) error
	Delete(key []byte) error
	DeleteMany(keys [][]byte) error
	Scan(lower []byte, upper []byte, fn func(key []byte, value []byte) error) error
	Close() error
}

type KeyValue struct {
	Key   []byte
	Value []byte
}

// disabler is implemented by engines that can't hold tables.
type disabler interface {
	Disabled() bool
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	// all 0xff, no upper bound
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
