// Package bench runs insert and read benchmarks of simulated feature data
// against feature tables and other stores, and summarises the timings.
package bench

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

var ErrMismatch = errors.New("read back differs from written")

// Setup creates a new feature table shaped like a simulated sample, or opens
// the existing one.
func Setup(ctx context.Context, fc *featuretable.FeatureTableConnection, sim *simulate.Simulator, idCol string, create bool) error {
	if create {
		dummy := sim.Simulate(0, 0, 0)
		return fc.CreateNewTable(ctx, idCol, simulate.Description(dummy.Features))
	}
	_, err := fc.OpenTable(ctx, 0, "")
	return err
}

// recordColumns converts a record using the table's id column name.
func recordColumns(ctx context.Context, fc *featuretable.FeatureTableConnection, cols []*table.Column) ([]*table.Column, error) {
	headers, err := fc.GetHeaders(ctx)
	if err != nil {
		return nil, err
	}
	cols[0].Name = headers[0].Name
	return cols, nil
}

// Insert adds n simulated records one row at a time. With check each row is
// read back and compared, with keep the records are returned.
func Insert(ctx context.Context, fc *featuretable.FeatureTableConnection, sim *simulate.Simulator, n int, check bool, keep bool) ([]simulate.Record, *Stopwatch, error) {
	var kept []simulate.Record
	sw := NewStopwatch()
	for i := 0; i < n; i++ {
		rec := sim.Simulate(int64(i), simulate.MuFor(i), 0)
		cols, err := recordColumns(ctx, fc, simulate.Columns(rec.ID, rec.Features))
		if err != nil {
			return nil, nil, err
		}
		if _, err := fc.AddPartialData(ctx, cols); err != nil {
			return nil, nil, err
		}
		sw.Lap()

		if keep {
			kept = append(kept, rec)
		}
		if check {
			nr, err := fc.GetNumberOfRows(ctx)
			if err != nil {
				return nil, nil, err
			}
			if err := compareRows(ctx, fc, nr-1, []simulate.Record{rec}); err != nil {
				return nil, nil, err
			}
		}
		log.Debugf("inserted %d", i)
	}
	return kept, sw, nil
}

// InsertBulkRepeat simulates nr records and adds all of them n times.
func InsertBulkRepeat(ctx context.Context, fc *featuretable.FeatureTableConnection, sim *simulate.Simulator, nr int, n int, keep bool) ([]simulate.Record, *Stopwatch, error) {
	records := make([]simulate.Record, nr)
	for i := range records {
		records[i] = sim.Simulate(int64(i), simulate.MuFor(i), 0)
	}
	cols, err := recordColumns(ctx, fc, simulate.MultiColumns(records))
	if err != nil {
		return nil, nil, err
	}
	log.Infof("Created %d data points", nr)

	sw := NewStopwatch()
	for i := 0; i < n; i++ {
		if _, err := fc.AddPartialData(ctx, cols); err != nil {
			return nil, nil, err
		}
		sw.Lap()
		log.Debugf("bulk insert %d", i)
	}
	if !keep {
		records = nil
	}
	return records, sw, nil
}

// ReadBulk reads the whole table nr rows at a time, moving skip rows each
// step. skip defaults to nr. The stopwatch has one lap per read.
func ReadBulk(ctx context.Context, fc *featuretable.FeatureTableConnection, nr int64, skip int64) (*Stopwatch, error) {
	if nr <= 0 {
		return nil, fmt.Errorf("window of %d rows", nr)
	}
	if skip <= 0 {
		skip = nr
	}
	headers, err := fc.GetHeaders(ctx)
	if err != nil {
		return nil, err
	}
	colNumbers := make([]int, len(headers))
	for i := range colNumbers {
		colNumbers[i] = i
	}
	rows, err := fc.GetNumberOfRows(ctx)
	if err != nil {
		return nil, err
	}

	sw := NewStopwatch()
	for i := int64(0); i < rows; i += skip {
		if _, err := fc.ReadArray(ctx, colNumbers, i, i+nr); err != nil {
			return nil, err
		}
		log.Debugf("read %d at %s", i, sw.Lap())
	}
	return sw, nil
}

// CompareLastKeep checks the last len(keep) rows of the table hold the kept
// records.
func CompareLastKeep(ctx context.Context, fc *featuretable.FeatureTableConnection, keep []simulate.Record) error {
	rows, err := fc.GetNumberOfRows(ctx)
	if err != nil {
		return err
	}
	return compareRows(ctx, fc, rows-int64(len(keep)), keep)
}

func compareRows(ctx context.Context, fc *featuretable.FeatureTableConnection, first int64, records []simulate.Record) error {
	if first < 0 {
		return fmt.Errorf("table has %d fewer rows than kept: %w", -first, ErrMismatch)
	}
	headers, err := fc.GetHeaders(ctx)
	if err != nil {
		return err
	}
	colNumbers := make([]int, len(headers))
	for i := range colNumbers {
		colNumbers[i] = i
	}
	for n, rec := range records {
		cols, err := fc.ReadArray(ctx, colNumbers, first+int64(n), first+int64(n)+1)
		if err != nil {
			return err
		}
		if err := compareRow(cols, rec); err != nil {
			return fmt.Errorf("row %d: %w", first+int64(n), err)
		}
	}
	return nil
}

// compareRow checks a single row read with ReadArray against a record.
// Features missing from the record must read back empty.
func compareRow(cols []*table.Column, rec simulate.Record) error {
	if len(cols) == 0 || cols[0].Len() != 1 {
		return fmt.Errorf("expected one row: %w", ErrMismatch)
	}
	if cols[0].Longs[0] != rec.ID {
		return fmt.Errorf("id %d, expected %d: %w", cols[0].Longs[0], rec.ID, ErrMismatch)
	}
	seen := 0
	for _, c := range cols[1:] {
		got := c.DoubleArrays[0]
		want, ok := rec.Features[c.Name]
		if !ok {
			if len(got) != 0 {
				return fmt.Errorf("%s should be empty: %w", c.Name, ErrMismatch)
			}
			continue
		}
		seen++
		if len(got) != len(want) {
			return fmt.Errorf("%s has %d values, expected %d: %w", c.Name, len(got), len(want), ErrMismatch)
		}
		for i := range want {
			if got[i] != want[i] {
				return fmt.Errorf("%s[%d] is %v, expected %v: %w", c.Name, i, got[i], want[i], ErrMismatch)
			}
		}
	}
	if seen != len(rec.Features) {
		return fmt.Errorf("%d of %d features in the table: %w", seen, len(rec.Features), ErrMismatch)
	}
	return nil
}
