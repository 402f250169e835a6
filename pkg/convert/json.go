// Package convert turns simulated records into nested JSON documents and
// back. Feature keys are split by their layout so t1_t2_f3 becomes
// {"t1":{"t2":{"f3":[...]}}}.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

const (
	IDField        = "id"
	TimestampField = "timestamp"
)

var ErrInvalidDocument = errors.New("invalid document")

// FieldPath returns the dotted document path of a feature key.
func FieldPath(key string, layout simulate.Layout) string {
	groups, feature := layout.Split(key)
	return strings.Join(append(groups, feature), ".")
}

// FeaturesToJSON builds a nested JSON document holding the record id,
// timestamp and features.
func FeaturesToJSON(rec simulate.Record, layout simulate.Layout) (string, error) {
	doc, err := sjson.Set("", IDField, rec.ID)
	if err != nil {
		return "", err
	}
	doc, err = sjson.Set(doc, TimestampField, rec.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}

	// sorted keys give a stable document
	for _, k := range simulate.SortedKeys(rec.Features) {
		path := FieldPath(k, layout)
		if path == IDField || path == TimestampField {
			return "", fmt.Errorf("feature %q clashes with a reserved field: %w", k, ErrInvalidDocument)
		}
		doc, err = sjson.Set(doc, path, rec.Features[k])
		if err != nil {
			log.Errorf("Error setting %s: %v", path, err)
			return "", err
		}
	}
	return doc, nil
}

// JSONToFeatures flattens a document produced by FeaturesToJSON back into a
// record.
func JSONToFeatures(doc string, layout simulate.Layout) (simulate.Record, error) {
	rec := simulate.Record{Features: make(map[string][]float64)}
	if !gjson.Valid(doc) {
		return rec, fmt.Errorf("not JSON: %w", ErrInvalidDocument)
	}
	res := gjson.Parse(doc)
	if !res.IsObject() {
		return rec, fmt.Errorf("expected an object: %w", ErrInvalidDocument)
	}

	rec.ID = res.Get(IDField).Int()
	if ts := res.Get(TimestampField); ts.Exists() {
		t, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return rec, fmt.Errorf("timestamp %q: %w", ts.String(), ErrInvalidDocument)
		}
		rec.Timestamp = t
	}

	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		if key.String() == IDField || key.String() == TimestampField {
			return true
		}
		err = processKey(nil, key.String(), value, layout, rec.Features)
		return err == nil
	})
	return rec, err
}

func processKey(groups []string, key string, value gjson.Result, layout simulate.Layout, features map[string][]float64) error {
	switch {
	case value.IsArray():
		arr := value.Array()
		v := make([]float64, len(arr))
		for i, x := range arr {
			if x.Type != gjson.Number {
				return fmt.Errorf("%s[%d] is not a number: %w", key, i, ErrInvalidDocument)
			}
			v[i] = x.Num
		}
		features[layout.Key(key, groups...)] = v
	case value.IsObject():
		var err error
		nested := append(append([]string{}, groups...), key)
		value.ForEach(func(k, v gjson.Result) bool {
			err = processKey(nested, k.String(), v, layout, features)
			return err == nil
		})
		return err
	default:
		return fmt.Errorf("unexpected value for %s: %w", key, ErrInvalidDocument)
	}
	return nil
}
