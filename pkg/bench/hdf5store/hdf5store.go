//go:build hdf5

package hdf5store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/hdf5"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

// Mode selects the chunk layout of the feature datasets.
type Mode string

const (
	// EArray chunks one row at a time.
	EArray Mode = "earray"

	// Chunked chunks ChunkRows rows at a time.
	Chunked Mode = "chunked"
)

var ErrInvalidMode = errors.New("invalid hdf5 mode")

const idDataset = "/_id"

type Config struct {
	Filename  string
	Mode      Mode
	ChunkRows uint
	Layout    simulate.Layout
}

type feature struct {
	dataset *hdf5.Dataset
	width   uint
}

type Store struct {
	file     *hdf5.File
	config   Config
	rows     uint
	ids      *hdf5.Dataset
	features map[string]*feature
}

func New(config Config) (*Store, error) {
	switch config.Mode {
	case "", EArray:
		config.Mode = EArray
		config.ChunkRows = 1
	case Chunked:
		if config.ChunkRows == 0 {
			config.ChunkRows = 1000
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, config.Mode)
	}
	if config.Layout.Sep == "" {
		config.Layout = simulate.PathLayout
	}

	f, err := hdf5.CreateFile(config.Filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		log.Errorf("unable to create %s: %v", config.Filename, err)
		return nil, err
	}
	s := Store{}
	s.file = f
	s.config = config
	s.features = make(map[string]*feature)
	return &s, nil
}

func (s *Store) Name() string {
	return "hdf5"
}

// createGroups creates every group along path that doesn't exist yet.
func (s *Store) createGroups(groups []string, created map[string]bool) error {
	path := ""
	for _, g := range groups {
		path += "/" + g
		if created[path] {
			continue
		}
		grp, err := s.file.CreateGroup(path)
		if err != nil {
			return fmt.Errorf("group %s: %w", path, err)
		}
		grp.Close()
		created[path] = true
	}
	return nil
}

func (s *Store) createDataset(path string, dtype *hdf5.Datatype, dims []uint, maxDims []uint, chunk []uint) (*hdf5.Dataset, error) {
	space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, err
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	defer plist.Close()
	if err := plist.SetChunk(chunk); err != nil {
		return nil, err
	}
	return s.file.CreateDatasetWith(path, dtype, space, plist)
}

// Prepare creates one dataset per feature of sample plus an id dataset.
func (s *Store) Prepare(ctx context.Context, sample simulate.Record) error {
	chunk := s.config.ChunkRows
	ids, err := s.createDataset(idDataset, hdf5.T_NATIVE_INT64, []uint{0}, []uint{hdf5.S_UNLIMITED}, []uint{chunk})
	if err != nil {
		return err
	}
	s.ids = ids

	created := make(map[string]bool)
	for _, k := range simulate.SortedKeys(sample.Features) {
		groups, name := s.config.Layout.Split(k)
		if err := s.createGroups(groups, created); err != nil {
			return err
		}
		width := uint(len(sample.Features[k]))
		path := "/" + strings.Join(append(groups, name), "/")
		ds, err := s.createDataset(path, hdf5.T_NATIVE_DOUBLE, []uint{0, width}, []uint{hdf5.S_UNLIMITED, width}, []uint{chunk, width})
		if err != nil {
			return fmt.Errorf("dataset %s: %w", path, err)
		}
		s.features[k] = &feature{dataset: ds, width: width}
	}
	return nil
}

// appendRows extends ds by n rows and writes data into them.
func appendRows(ds *hdf5.Dataset, rows uint, n uint, width uint, data any) error {
	dims := []uint{rows + n}
	offset := []uint{rows}
	count := []uint{n}
	if width > 0 {
		dims = append(dims, width)
		offset = append(offset, 0)
		count = append(count, width)
	}
	if err := ds.Resize(dims); err != nil {
		return err
	}
	filespace := ds.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return err
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer memspace.Close()
	return ds.WriteSubset(data, memspace, filespace)
}

// Insert appends a row per record to every dataset. Missing features are
// written as NaN.
func (s *Store) Insert(ctx context.Context, records []simulate.Record) error {
	if s.ids == nil {
		return errors.New("hdf5 store not prepared")
	}
	n := uint(len(records))
	if n == 0 {
		return nil
	}

	ids := make([]int64, n)
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := appendRows(s.ids, s.rows, n, 0, &ids); err != nil {
		return err
	}

	for k, f := range s.features {
		data := make([]float64, 0, n*f.width)
		for _, r := range records {
			v, ok := r.Features[k]
			if !ok || uint(len(v)) != f.width {
				for i := uint(0); i < f.width; i++ {
					data = append(data, math.NaN())
				}
				continue
			}
			data = append(data, v...)
		}
		if err := appendRows(f.dataset, s.rows, n, f.width, &data); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	s.rows += n
	return s.file.Flush(hdf5.F_SCOPE_GLOBAL)
}

// ReadField reads the whole dataset of a feature, skipping missing rows.
func (s *Store) ReadField(ctx context.Context, key string) ([][]float64, error) {
	f, ok := s.features[key]
	if !ok {
		return nil, fmt.Errorf("no dataset for %s", key)
	}
	data := make([]float64, s.rows*f.width)
	if len(data) == 0 {
		return [][]float64{}, nil
	}
	if err := f.dataset.Read(&data); err != nil {
		return nil, err
	}

	res := make([][]float64, 0, s.rows)
	for r := uint(0); r < s.rows; r++ {
		row := data[r*f.width : (r+1)*f.width]
		if math.IsNaN(row[0]) {
			continue
		}
		res = append(res, row)
	}
	return res, nil
}

func (s *Store) Close() error {
	for _, f := range s.features {
		f.dataset.Close()
	}
	if s.ids != nil {
		s.ids.Close()
	}
	return s.file.Close()
}
