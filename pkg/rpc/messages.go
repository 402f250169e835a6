package rpc

import (
	"math"

	"github.com/kpfaulkner/featuretables/pkg/storage"
	"github.com/kpfaulkner/featuretables/pkg/table"
)

type Empty struct{}

type EnabledResponse struct {
	Enabled bool `msgpack:"enabled"`
}

type NameRequest struct {
	Name string `msgpack:"name"`
}

// TableRequest addresses a single table.
type TableRequest struct {
	ID int64 `msgpack:"id"`
}

type TableInfoResponse struct {
	Info storage.TableInfo `msgpack:"info"`
}

type FindTablesResponse struct {
	Tables []storage.TableInfo `msgpack:"tables"`
}

type DeleteTablesRequest struct {
	IDs []int64 `msgpack:"ids"`
}

type InitializeRequest struct {
	ID      int64           `msgpack:"id"`
	Headers []*table.Column `msgpack:"headers"`
}

type HeadersResponse struct {
	Headers []*table.Column `msgpack:"headers"`
}

type NumberOfRowsResponse struct {
	Rows int64 `msgpack:"rows"`
}

type ReadRequest struct {
	ID      int64 `msgpack:"id"`
	Columns []int `msgpack:"cols"`
	Start   int64 `msgpack:"start"`
	Stop    int64 `msgpack:"stop"`
}

type ReadCoordinatesRequest struct {
	ID   int64   `msgpack:"id"`
	Rows []int64 `msgpack:"rows"`
}

type DataResponse struct {
	Data *table.Data `msgpack:"data"`
}

type WhereRequest struct {
	ID        int64          `msgpack:"id"`
	Condition string         `msgpack:"cond"`
	Vars      map[string]any `msgpack:"vars"`
	Start     int64          `msgpack:"start"`
	Stop      int64          `msgpack:"stop"`
}

type RowsResponse struct {
	Rows []int64 `msgpack:"rows"`
}

type AddDataRequest struct {
	ID      int64           `msgpack:"id"`
	Columns []*table.Column `msgpack:"cols"`
}

// NormalizeVars widens decoded msgpack numbers so condition variables have
// the same types on both ends of the wire.
func NormalizeVars(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	res := make(map[string]any, len(vars))
	for k, v := range vars {
		switch n := v.(type) {
		case int8:
			res[k] = int64(n)
		case int16:
			res[k] = int64(n)
		case int32:
			res[k] = int64(n)
		case int:
			res[k] = int64(n)
		case uint8:
			res[k] = int64(n)
		case uint16:
			res[k] = int64(n)
		case uint32:
			res[k] = int64(n)
		case uint64:
			if n <= math.MaxInt64 {
				res[k] = int64(n)
			} else {
				res[k] = n
			}
		case float32:
			res[k] = float64(n)
		default:
			res[k] = v
		}
	}
	return res
}
