package featuretable

import (
	"context"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/pkg/query"
	"github.com/kpfaulkner/featuretables/pkg/storage"
	tbl "github.com/kpfaulkner/featuretables/pkg/table"
)

// ValidPrefix names the bool column paired with each id or data column.
const ValidPrefix = "_b_"

var (
	ErrColumnLayout      = errors.New("unexpected column layout")
	ErrUnexpectedColumns = errors.New("unexpected columns")
)

// ColumnDescription describes a data column: a double array of Size values.
type ColumnDescription struct {
	Name string
	Size int
}

// FeatureTableConnection stores an id column and double array columns that
// may be empty. The table holds 2*nCols columns: the id and data columns
// followed by one bool column each, true where the cell holds a value.
type FeatureTableConnection struct {
	*TableConnection
}

func NewFeatureTableConnection(ctx context.Context, db storage.DB, tableName string) (*FeatureTableConnection, error) {
	tc, err := New(ctx, db, tableName, 0)
	if err != nil {
		return nil, err
	}
	return &FeatureTableConnection{TableConnection: tc}, nil
}

// CreateNewTable creates and initialises a new table called TableName. If the
// columns can't be set the table is deleted again.
func (fc *FeatureTableConnection) CreateNewTable(ctx context.Context, idColName string, descs []ColumnDescription) error {
	info, err := fc.NewTable(ctx)
	if err != nil {
		return err
	}

	cols := []*tbl.Column{tbl.NewLongColumn(idColName, "")}
	for _, d := range descs {
		cols = append(cols, tbl.NewDoubleArrayColumn(d.Name, "", d.Size))
	}
	cols = append(cols, tbl.NewBoolColumn(ValidPrefix+idColName, ""))
	for _, d := range descs {
		cols = append(cols, tbl.NewBoolColumn(ValidPrefix+d.Name, ""))
	}

	if err := fc.db.Initialize(ctx, info.ID, cols); err != nil {
		log.Errorf("Failed to create table: %v", err)
		fc.open = false
		if derr := fc.db.DeleteTables(ctx, []int64{info.ID}); derr != nil {
			log.Errorf("Failed to delete table: %v", derr)
		}
		return err
	}
	log.Infof("Initialised '%s' (%d)", fc.TableName, info.ID)
	return nil
}

// nCols returns the number of id and data columns.
func (fc *FeatureTableConnection) nCols(ctx context.Context) (int, error) {
	headers, err := fc.loadHeaders(ctx)
	if err != nil {
		return 0, err
	}
	return len(headers) / 2, nil
}

// checkColNumbers rejects column numbers that point at the bool columns.
func (fc *FeatureTableConnection) checkColNumbers(ctx context.Context, colNumbers []int) (int, error) {
	nCols, err := fc.nCols(ctx)
	if err != nil {
		return 0, err
	}
	var invalid []int
	for _, c := range colNumbers {
		if c < 0 || c >= nCols {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		return 0, fmt.Errorf("invalid column index: %v: %w", invalid, storage.ErrInvalidColumn)
	}
	return nCols, nil
}

// GetHeaders returns empty id and data columns, ready to be filled and passed
// to AddData.
func (fc *FeatureTableConnection) GetHeaders(ctx context.Context) ([]*tbl.Column, error) {
	headers, err := fc.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return headers[:len(headers)/2], nil
}

func (fc *FeatureTableConnection) GetNumberOfRows(ctx context.Context) (int64, error) {
	if !fc.open {
		return 0, ErrNotOpen
	}
	return fc.db.NumberOfRows(ctx, fc.TableID)
}

// readWithValidity reads the columns and their bool columns, returning each
// half separately.
func (fc *FeatureTableConnection) readWithValidity(ctx context.Context, colNumbers []int, start int64, stop int64) ([]*tbl.Column, []*tbl.Column, error) {
	nCols, err := fc.checkColNumbers(ctx, colNumbers)
	if err != nil {
		return nil, nil, err
	}

	all := make([]int, 0, 2*len(colNumbers))
	all = append(all, colNumbers...)
	for _, c := range colNumbers {
		all = append(all, c+nCols)
	}
	data, err := fc.db.Read(ctx, fc.TableID, all, start, stop)
	if err != nil {
		return nil, nil, err
	}
	n := len(colNumbers)
	return data.Columns[:n], data.Columns[n:], nil
}

// IsValid returns the bool columns for colNumbers.
func (fc *FeatureTableConnection) IsValid(ctx context.Context, colNumbers []int, start int64, stop int64) ([]*tbl.Column, error) {
	nCols, err := fc.checkColNumbers(ctx, colNumbers)
	if err != nil {
		return nil, err
	}
	bcols := make([]int, len(colNumbers))
	for i, c := range colNumbers {
		bcols[i] = c + nCols
	}
	data, err := fc.db.Read(ctx, fc.TableID, bcols, start, stop)
	if err != nil {
		return nil, err
	}
	return data.Columns, nil
}

// ReadArray reads the requested columns. Cells marked invalid come back as
// empty arrays.
func (fc *FeatureTableConnection) ReadArray(ctx context.Context, colNumbers []int, start int64, stop int64) ([]*tbl.Column, error) {
	cols, bcols, err := fc.readWithValidity(ctx, colNumbers, start, stop)
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		nullEmpty(c, bcols[i])
	}
	return cols, nil
}

// ReadSubArray reads selected elements of array columns. colArrayNumbers maps
// column number to the element indices wanted. Scalar columns ignore the
// indices. Columns come back ordered by column number.
func (fc *FeatureTableConnection) ReadSubArray(ctx context.Context, colArrayNumbers map[int][]int, start int64, stop int64) ([]*tbl.Column, error) {
	colNumbers := make([]int, 0, len(colArrayNumbers))
	for c := range colArrayNumbers {
		colNumbers = append(colNumbers, c)
	}
	sort.Ints(colNumbers)

	cols, bcols, err := fc.readWithValidity(ctx, colNumbers, start, stop)
	if err != nil {
		return nil, err
	}

	for i, c := range cols {
		indices := colArrayNumbers[colNumbers[i]]
		if !c.IsArray() {
			nullEmpty(c, bcols[i])
			continue
		}
		for _, idx := range indices {
			if idx < 0 || idx >= c.Size {
				return nil, fmt.Errorf("%s has %d elements, index %d: %w", c.Name, c.Size, idx, storage.ErrInvalidRange)
			}
		}
		if err := subArray(c, bcols[i], indices); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

func subArray(c *tbl.Column, valid *tbl.Column, indices []int) error {
	switch c.Kind {
	case tbl.DoubleArray:
		for r, v := range c.DoubleArrays {
			sub := []float64{}
			if valid.Bools[r] {
				for _, idx := range indices {
					sub = append(sub, v[idx])
				}
			}
			c.DoubleArrays[r] = sub
		}
	case tbl.LongArray:
		for r, v := range c.LongArrays {
			sub := []int64{}
			if valid.Bools[r] {
				for _, idx := range indices {
					sub = append(sub, v[idx])
				}
			}
			c.LongArrays[r] = sub
		}
	default:
		return fmt.Errorf("%s is %s: %w", c.Name, c.Kind, tbl.ErrKindMismatch)
	}
	c.Size = len(indices)
	return nil
}

// nullEmpty replaces invalid array cells with empty arrays. Scalar columns
// have no empty value and are left as they are.
func nullEmpty(c *tbl.Column, valid *tbl.Column) {
	switch c.Kind {
	case tbl.DoubleArray:
		for r := range c.DoubleArrays {
			if !valid.Bools[r] {
				c.DoubleArrays[r] = []float64{}
			}
		}
	case tbl.LongArray:
		for r := range c.LongArrays {
			if !valid.Bools[r] {
				c.LongArrays[r] = []int64{}
			}
		}
	}
}

// zeroEmpty sets empty cells to zero vectors of the header width and returns
// the matching bool column.
func zeroEmpty(c *tbl.Column, header *tbl.Column) *tbl.Column {
	valid := tbl.NewBoolColumn(ValidPrefix+header.Name, header.Description)
	valid.Bools = make([]bool, len(c.DoubleArrays))
	for r, v := range c.DoubleArrays {
		if len(v) == 0 {
			c.DoubleArrays[r] = make([]float64, header.Size)
		} else {
			valid.Bools[r] = true
		}
	}
	return valid
}

// validityHeaders returns the bool column headers of the open table.
func (fc *FeatureTableConnection) validityHeaders(ctx context.Context) ([]*tbl.Column, []*tbl.Column, error) {
	headers, err := fc.loadHeaders(ctx)
	if err != nil {
		return nil, nil, err
	}
	n := len(headers) / 2
	return headers[:n], headers[n:], nil
}

// AddData appends rows. cols must be the id column followed by every data
// column, in table order. Empty array cells are stored as zeros and marked
// invalid. The written columns, bool columns included, are returned; cols is
// not modified.
func (fc *FeatureTableConnection) AddData(ctx context.Context, cols []*tbl.Column) ([]*tbl.Column, error) {
	headers, bheaders, err := fc.validityHeaders(ctx)
	if err != nil {
		return nil, err
	}
	nCols := len(headers)
	if len(cols) != nCols {
		return nil, fmt.Errorf("expected %d columns, got %d: %w", nCols, len(cols), ErrColumnLayout)
	}
	if cols[0].Kind != tbl.Long {
		return nil, fmt.Errorf("expected 1 LongColumn and %d DoubleArrayColumn: %w", nCols-1, ErrColumnLayout)
	}
	for _, c := range cols[1:] {
		if c.Kind != tbl.DoubleArray {
			return nil, fmt.Errorf("expected 1 LongColumn and %d DoubleArrayColumn: %w", nCols-1, ErrColumnLayout)
		}
	}

	columns := make([]*tbl.Column, 2*nCols)
	columns[0] = cols[0].Clone()
	nRows := columns[0].Len()
	columns[nCols] = idValidity(bheaders[0], nRows)
	for n := 1; n < nCols; n++ {
		columns[n] = cols[n].Clone()
		columns[nCols+n] = zeroEmpty(columns[n], headers[n])
	}

	if err := fc.db.AddData(ctx, fc.TableID, columns); err != nil {
		log.Errorf("unable to add data to %d: %v", fc.TableID, err)
		return nil, err
	}
	return columns, nil
}

// AddPartialData appends rows where some data columns may be missing. Columns
// are matched by name and the id column is required. Missing columns are
// stored as zeros and marked invalid.
func (fc *FeatureTableConnection) AddPartialData(ctx context.Context, cols []*tbl.Column) ([]*tbl.Column, error) {
	headers, bheaders, err := fc.validityHeaders(ctx)
	if err != nil {
		return nil, err
	}
	nCols := len(headers)

	columnMap := make(map[string]*tbl.Column, len(cols))
	for _, c := range cols {
		columnMap[c.Name] = c
	}

	columns := make([]*tbl.Column, 2*nCols)
	id, ok := columnMap[headers[0].Name]
	if !ok {
		return nil, fmt.Errorf("first column (%s) must be provided: %w", headers[0].Name, ErrColumnLayout)
	}
	delete(columnMap, headers[0].Name)
	if id.Kind != tbl.Long {
		return nil, fmt.Errorf("expected LongColumn (%s): %w", id.Name, ErrColumnLayout)
	}
	columns[0] = id.Clone()
	nRows := columns[0].Len()
	columns[nCols] = idValidity(bheaders[0], nRows)

	for n := 1; n < nCols; n++ {
		c, ok := columnMap[headers[n].Name]
		if !ok {
			columns[n] = headers[n].Header()
			columns[n].DoubleArrays = make([][]float64, nRows)
			for r := range columns[n].DoubleArrays {
				columns[n].DoubleArrays[r] = make([]float64, headers[n].Size)
			}
			columns[nCols+n] = bheaders[n].Header()
			columns[nCols+n].Bools = make([]bool, nRows)
			continue
		}
		delete(columnMap, headers[n].Name)
		if c.Kind != tbl.DoubleArray {
			return nil, fmt.Errorf("expected DoubleArrayColumn (%s): %w", c.Name, ErrColumnLayout)
		}
		columns[n] = c.Clone()
		columns[nCols+n] = zeroEmpty(columns[n], headers[n])
	}

	if len(columnMap) > 0 {
		unexpected := make([]string, 0, len(columnMap))
		for k := range columnMap {
			unexpected = append(unexpected, k)
		}
		sort.Strings(unexpected)
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedColumns, unexpected)
	}

	if err := fc.db.AddData(ctx, fc.TableID, columns); err != nil {
		log.Errorf("unable to add data to %d: %v", fc.TableID, err)
		return nil, err
	}
	return columns, nil
}

func idValidity(header *tbl.Column, nRows int) *tbl.Column {
	valid := header.Header()
	valid.Bools = make([]bool, nRows)
	for i := range valid.Bools {
		valid.Bools[i] = true
	}
	return valid
}

// GetRowID returns the row numbers whose id column equals id.
func (fc *FeatureTableConnection) GetRowID(ctx context.Context, id int64) ([]int64, error) {
	headers, err := fc.loadHeaders(ctx)
	if err != nil {
		return nil, err
	}
	nRows, err := fc.db.NumberOfRows(ctx, fc.TableID)
	if err != nil {
		return nil, err
	}
	if query.Usable(headers[0].Name) {
		condition := fmt.Sprintf("%s == %d", headers[0].Name, id)
		return fc.db.GetWhereList(ctx, fc.TableID, condition, nil, 0, nRows)
	}

	// the id column can't be named in a condition, so scan it
	data, err := fc.db.Read(ctx, fc.TableID, []int{0}, 0, nRows)
	if err != nil {
		return nil, err
	}
	rows := []int64{}
	for i, v := range data.Columns[0].Longs {
		if v == id {
			rows = append(rows, data.RowNumbers[i])
		}
	}
	return rows, nil
}
