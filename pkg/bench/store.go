package bench

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

// Store is a backend the document benchmarks write simulated records to.
type Store interface {
	Name() string

	// Prepare creates whatever schema the store needs for records shaped
	// like sample.
	Prepare(ctx context.Context, sample simulate.Record) error

	Insert(ctx context.Context, records []simulate.Record) error

	// ReadField returns the vector stored under a feature key for every
	// record that has it.
	ReadField(ctx context.Context, key string) ([][]float64, error)

	Close() error
}

// AboveCounter is implemented by stores that can count matching records
// themselves.
type AboveCounter interface {
	CountAllAbove(ctx context.Context, key string, threshold float64) (int64, error)
}

// RunInsert simulates a record per id and inserts them batch at a time. The
// stopwatch has one lap per batch.
func RunInsert(ctx context.Context, store Store, sim *simulate.Simulator, ids []int64, batch int, delField float64) (*Stopwatch, error) {
	if batch <= 0 {
		batch = 1
	}
	sw := NewStopwatch()
	records := make([]simulate.Record, 0, batch)
	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		if err := store.Insert(ctx, records); err != nil {
			log.Errorf("%s insert failed: %v", store.Name(), err)
			return err
		}
		sw.Lap()
		records = records[:0]
		return nil
	}

	for _, id := range ids {
		records = append(records, sim.Simulate(id, simulate.MuFor(int(id)), delField))
		if len(records) == batch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return sw, nil
}

// ReadResult is the output of RunReadField.
type ReadResult struct {
	Values  [][]float64
	Means   []float64
	Elapsed time.Duration
}

// RunReadField reads a feature from every record and computes the mean of
// each vector.
func RunReadField(ctx context.Context, store Store, key string) (*ReadResult, error) {
	start := time.Now()
	values, err := store.ReadField(ctx, key)
	if err != nil {
		log.Errorf("%s read of %s failed: %v", store.Name(), key, err)
		return nil, err
	}
	res := ReadResult{Values: values, Means: make([]float64, len(values))}
	for i, v := range values {
		res.Means[i] = stat.Mean(v, nil)
	}
	res.Elapsed = time.Since(start)
	return &res, nil
}

// CountAllAbove counts the vectors whose values are all above threshold.
func CountAllAbove(values [][]float64, threshold float64) int {
	count := 0
	for _, v := range values {
		all := true
		for _, x := range v {
			if x <= threshold {
				all = false
				break
			}
		}
		if all {
			count++
		}
	}
	return count
}

// NullStore discards everything. It times the simulation alone.
type NullStore struct{}

func NewNullStore() *NullStore {
	return &NullStore{}
}

func (s *NullStore) Name() string {
	return "null"
}

func (s *NullStore) Prepare(ctx context.Context, sample simulate.Record) error {
	return nil
}

func (s *NullStore) Insert(ctx context.Context, records []simulate.Record) error {
	return ctx.Err()
}

func (s *NullStore) ReadField(ctx context.Context, key string) ([][]float64, error) {
	return [][]float64{}, nil
}

func (s *NullStore) Close() error {
	return nil
}
