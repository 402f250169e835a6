// Package cassstore benchmarks Cassandra with one wide row per record: every
// vector element is a cell keyed by (feature, idx).
package cassstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

// Mode selects how a record is written.
type Mode string

const (
	// PerCell issues one insert per vector element.
	PerCell Mode = "cell"

	// WholeRow writes each record with unlogged batches.
	WholeRow Mode = "row"
)

// maxBatch keeps batches under the server's batch size failure threshold.
const maxBatch = 500

var ErrInvalidMode = errors.New("invalid insert mode")

type Config struct {
	ClusterHosts []string
	Keyspace     string
	Consistency  gocql.Consistency

	ConnectionTimeout time.Duration

	// Defaults to simple strategy & replication factor of 1.
	ReplicationClause string

	Mode Mode

	// Drop and recreate the table in Prepare.
	Drop bool
}

type Store struct {
	session *gocql.Session
	config  Config
}

func New(config Config) (*Store, error) {
	if config.Keyspace == "" {
		config.Keyspace = "featuretables"
	}
	if config.ReplicationClause == "" {
		config.ReplicationClause = "{'class':'SimpleStrategy', 'replication_factor':1}"
	}
	if config.Mode == "" {
		config.Mode = WholeRow
	}
	if config.Mode != PerCell && config.Mode != WholeRow {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, config.Mode)
	}

	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Consistency = config.Consistency
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	session, err := cluster.CreateSession()
	if err != nil {
		log.Errorf("unable to connect to %v: %v", config.ClusterHosts, err)
		return nil, err
	}

	err = session.Query(fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = %s", config.Keyspace, config.ReplicationClause)).Exec()
	if err != nil {
		session.Close()
		return nil, err
	}
	return &Store{session: session, config: config}, nil
}

func (s *Store) Name() string {
	return "cassandra"
}

func (s *Store) table() string {
	return s.config.Keyspace + ".features"
}

func (s *Store) Prepare(ctx context.Context, sample simulate.Record) error {
	if s.config.Drop {
		if err := s.session.Query("DROP TABLE IF EXISTS " + s.table()).WithContext(ctx).Exec(); err != nil {
			return err
		}
	}
	err := s.session.Query(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id bigint, feature ascii, idx int, value double, PRIMARY KEY (id, feature, idx))", s.table())).WithContext(ctx).Exec()
	if err != nil {
		return err
	}
	return s.session.Query(fmt.Sprintf("CREATE INDEX IF NOT EXISTS features_feature ON %s (feature)", s.table())).WithContext(ctx).Exec()
}

func (s *Store) Insert(ctx context.Context, records []simulate.Record) error {
	insert := fmt.Sprintf("INSERT INTO %s (id, feature, idx, value) VALUES (?, ?, ?, ?)", s.table())
	for _, r := range records {
		if s.config.Mode == WholeRow {
			batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
			for k, v := range r.Features {
				for i, x := range v {
					batch.Query(insert, r.ID, k, i, x)
					if batch.Size() == maxBatch {
						if err := s.session.ExecuteBatch(batch); err != nil {
							return err
						}
						batch = s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
					}
				}
			}
			if batch.Size() > 0 {
				if err := s.session.ExecuteBatch(batch); err != nil {
					return err
				}
			}
			continue
		}

		for k, v := range r.Features {
			for i, x := range v {
				if err := s.session.Query(insert, r.ID, k, i, x).WithContext(ctx).Exec(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ReadField reads a feature from every record through the secondary index.
func (s *Store) ReadField(ctx context.Context, key string) ([][]float64, error) {
	iter := s.session.Query(fmt.Sprintf("SELECT id, idx, value FROM %s WHERE feature = ?", s.table()), key).WithContext(ctx).Iter()

	byID := make(map[int64][]float64)
	var order []int64
	var id int64
	var idx int
	var value float64
	for iter.Scan(&id, &idx, &value) {
		v, ok := byID[id]
		if !ok {
			order = append(order, id)
		}
		for len(v) <= idx {
			v = append(v, 0)
		}
		v[idx] = value
		byID[id] = v
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	res := make([][]float64, len(order))
	for i, id := range order {
		res[i] = byID[id]
	}
	return res, nil
}

func (s *Store) Close() error {
	s.session.Close()
	return nil
}
