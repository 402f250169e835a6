package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/pkg/convert"
	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

// maxLine bounds a single exported document.
const maxLine = 64 * 1024 * 1024

// exportTable writes one JSON document per row of the open table.
func exportTable(ctx context.Context, fc *featuretable.FeatureTableConnection, w io.Writer, layout simulate.Layout, batch int64) (int, error) {
	headers, err := fc.GetHeaders(ctx)
	if err != nil {
		return 0, err
	}
	colNumbers := make([]int, len(headers))
	for i := range colNumbers {
		colNumbers[i] = i
	}
	rows, err := fc.GetNumberOfRows(ctx)
	if err != nil {
		return 0, err
	}
	if batch <= 0 {
		batch = 100
	}

	now := time.Now().UTC()
	bw := bufio.NewWriter(w)
	n := 0
	for start := int64(0); start < rows; start += batch {
		cols, err := fc.ReadArray(ctx, colNumbers, start, start+batch)
		if err != nil {
			return n, err
		}
		records, err := simulate.Records(cols)
		if err != nil {
			return n, err
		}
		for _, rec := range records {
			rec.Timestamp = now
			doc, err := convert.FeaturesToJSON(rec, layout)
			if err != nil {
				return n, err
			}
			if _, err := fmt.Fprintln(bw, doc); err != nil {
				return n, err
			}
			n++
		}
		log.Debugf("exported %d of %d", n, rows)
	}
	return n, bw.Flush()
}

// importTable adds the JSON documents read from r to the table, creating it
// from the features of the first batch if it doesn't exist.
func importTable(ctx context.Context, fc *featuretable.FeatureTableConnection, r io.Reader, layout simulate.Layout, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	n := 0
	opened := false
	records := make([]simulate.Record, 0, batch)
	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		if !opened {
			if err := openOrCreate(ctx, fc, records); err != nil {
				return err
			}
			opened = true
		}
		cols := simulate.MultiColumns(records)
		headers, err := fc.GetHeaders(ctx)
		if err != nil {
			return err
		}
		cols[0].Name = headers[0].Name
		if _, err := fc.AddPartialData(ctx, cols); err != nil {
			return err
		}
		n += len(records)
		records = records[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		rec, err := convert.JSONToFeatures(scanner.Text(), layout)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
		if len(records) == batch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

func openOrCreate(ctx context.Context, fc *featuretable.FeatureTableConnection, records []simulate.Record) error {
	_, err := fc.OpenTable(ctx, 0, "")
	if err == nil || !errors.Is(err, featuretable.ErrNoTable) {
		return err
	}

	widths := make(map[string][]float64)
	for _, r := range records {
		for k, v := range r.Features {
			if len(v) > len(widths[k]) {
				widths[k] = v
			}
		}
	}
	log.Infof("creating table %s with %d features", fc.TableName, len(widths))
	return fc.CreateNewTable(ctx, convert.IDField, simulate.Description(widths))
}
