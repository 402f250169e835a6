// Package simulate generates nested random feature sets for benchmarking and
// converts them to and from table columns.
package simulate

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Sigma = 4.0

	// IDColumn is the name of the id column in generated tables.
	IDColumn = "id"
)

// Mus are the means records cycle through, see MuFor.
var Mus = []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

// Widths are the vector lengths of the four features in each feature set.
var Widths = []int{10, 20, 30, 40}

// Layout controls how nested feature keys are named.
type Layout struct {
	Sep      string
	Root     string
	Groups   []string
	Features []string
}

// FlatLayout names keys like t1_t2_f3. These are usable as column names in
// conditions.
var FlatLayout = Layout{
	Sep:      "_",
	Groups:   []string{"t0", "t1", "t2", "t3"},
	Features: []string{"f0", "f1", "f2", "f3"},
}

// PathLayout names keys like /t1/t2/f3, matching HDF5 group paths.
var PathLayout = Layout{
	Sep:      "/",
	Root:     "/",
	Groups:   []string{"t1", "t2", "t3", "t4"},
	Features: []string{"f1", "f2", "f3", "f4"},
}

// Key joins groups and a feature name.
func (l Layout) Key(feature string, groups ...string) string {
	key := l.Root
	for _, g := range groups {
		key += g + l.Sep
	}
	return key + feature
}

// Split is the inverse of Key.
func (l Layout) Split(key string) (groups []string, feature string) {
	parts := strings.Split(strings.TrimPrefix(key, l.Root), l.Sep)
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Record is one simulated sample.
type Record struct {
	ID        int64
	Timestamp time.Time
	Features  map[string][]float64
}

// Simulator produces records. It is not safe for concurrent use.
type Simulator struct {
	Layout Layout
	Sigma  float64
	Widths []int

	src rand.Source
	rng *rand.Rand
}

func NewSimulator(layout Layout, seed uint64) *Simulator {
	s := Simulator{}
	s.Layout = layout
	s.Sigma = Sigma
	s.Widths = Widths
	s.src = rand.NewSource(seed)
	s.rng = rand.New(s.src)
	return &s
}

// MuFor returns the mean used for the i'th record. Negative i wrap around
// from the end.
func MuFor(i int) float64 {
	n := i % len(Mus)
	if n < 0 {
		n += len(Mus)
	}
	return Mus[n]
}

// prefixes returns the group paths: the root, every group and every pair.
func (s *Simulator) prefixes() [][]string {
	res := [][]string{nil}
	for _, g := range s.Layout.Groups {
		res = append(res, []string{g})
	}
	for _, g1 := range s.Layout.Groups {
		for _, g2 := range s.Layout.Groups {
			res = append(res, []string{g1, g2})
		}
	}
	return res
}

// Simulate creates a record with 21 feature sets of 4 vectors each. Each
// vector is then dropped with probability delField.
func (s *Simulator) Simulate(id int64, mu float64, delField float64) Record {
	normal := distuv.Normal{Mu: mu, Sigma: s.Sigma, Src: s.src}

	features := make(map[string][]float64)
	var keys []string
	for _, prefix := range s.prefixes() {
		for i, f := range s.Layout.Features {
			v := make([]float64, s.Widths[i%len(s.Widths)])
			for j := range v {
				v[j] = normal.Rand()
			}
			key := s.Layout.Key(f, prefix...)
			features[key] = v
			keys = append(keys, key)
		}
	}

	if delField > 0 {
		sort.Strings(keys)
		for _, k := range keys {
			if s.rng.Float64() < delField {
				delete(features, k)
			}
		}
	}
	return Record{ID: id, Timestamp: time.Now().UTC(), Features: features}
}
