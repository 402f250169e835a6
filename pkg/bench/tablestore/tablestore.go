// Package tablestore benchmarks feature tables through the bench.Store
// interface.
package tablestore

import (
	"context"
	"fmt"

	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

type Store struct {
	fc *featuretable.FeatureTableConnection

	// create a new table in Prepare rather than opening the existing one
	create bool
}

func New(ctx context.Context, db storage.DB, tableName string, create bool) (*Store, error) {
	fc, err := featuretable.NewFeatureTableConnection(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	return &Store{fc: fc, create: create}, nil
}

func (s *Store) Name() string {
	return "table"
}

// Connection returns the feature table the store writes to.
func (s *Store) Connection() *featuretable.FeatureTableConnection {
	return s.fc
}

func (s *Store) Prepare(ctx context.Context, sample simulate.Record) error {
	if s.create {
		return s.fc.CreateNewTable(ctx, simulate.IDColumn, simulate.Description(sample.Features))
	}
	_, err := s.fc.OpenTable(ctx, 0, "")
	return err
}

func (s *Store) Insert(ctx context.Context, records []simulate.Record) error {
	_, err := s.fc.AddPartialData(ctx, simulate.MultiColumns(records))
	return err
}

// ReadField reads one column of the whole table and drops empty cells.
func (s *Store) ReadField(ctx context.Context, key string) ([][]float64, error) {
	headers, err := s.fc.GetHeaders(ctx)
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range headers {
		if h.Name == key {
			col = i
			break
		}
	}
	if col < 1 {
		return nil, fmt.Errorf("no feature column %q: %w", key, storage.ErrInvalidColumn)
	}

	rows, err := s.fc.GetNumberOfRows(ctx)
	if err != nil {
		return nil, err
	}
	cols, err := s.fc.ReadArray(ctx, []int{col}, 0, rows)
	if err != nil {
		return nil, err
	}
	res := make([][]float64, 0, len(cols[0].DoubleArrays))
	for _, v := range cols[0].DoubleArrays {
		if len(v) > 0 {
			res = append(res, v)
		}
	}
	return res, nil
}

// Close forgets the table. The DB belongs to the caller.
func (s *Store) Close() error {
	return s.fc.Close()
}
