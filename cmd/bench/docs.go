package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpfaulkner/featuretables/pkg/bench"
	"github.com/kpfaulkner/featuretables/pkg/bench/cassstore"
	"github.com/kpfaulkner/featuretables/pkg/bench/mongostore"
	"github.com/kpfaulkner/featuretables/pkg/bench/tablestore"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Insert simulated records into a store and read a feature back",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	flags := docsCmd.Flags()
	flags.String("store", "table", "Store to benchmark: mongo, cassandra, hdf5, table, null")
	flags.Int("records", 1000, "Number of records to insert")
	flags.Int("batch", 100, "Records per insert")
	flags.Float64("del-field", 0, "Probability of dropping each feature from a record")
	flags.String("field", "", "Feature to read back, defaults to the first simulated key")
	flags.Float64("threshold", 0, "Count records whose field is entirely above this")

	flags.String("mongo-uri", "mongodb://localhost:27017", "MongoDB URI")
	flags.String("mongo-database", "featuretables", "MongoDB database")
	flags.Bool("mongo-safe", false, "Use majority write concern")

	flags.String("cassandra-hosts", "localhost", "Comma separated Cassandra hosts")
	flags.String("cassandra-keyspace", "featuretables", "Cassandra keyspace")
	flags.String("cassandra-mode", string(cassstore.WholeRow), "Insert mode: cell or row")

	flags.String("hdf5-file", "features.h5", "HDF5 file")
	flags.String("hdf5-mode", "earray", "HDF5 dataset layout: earray or chunked")
	flags.Uint("hdf5-chunk", 1000, "Rows per chunk (chunked)")
}

func openStore(ctx context.Context) (bench.Store, error) {
	switch viper.GetString("store") {
	case "mongo":
		return mongostore.New(ctx, mongostore.Config{
			URI:      viper.GetString("mongo-uri"),
			Database: viper.GetString("mongo-database"),
			Safe:     viper.GetBool("mongo-safe"),
			Drop:     true,
			Layout:   layout(),
		})
	case "cassandra":
		return cassstore.New(cassstore.Config{
			ClusterHosts:      strings.Split(viper.GetString("cassandra-hosts"), ","),
			Keyspace:          viper.GetString("cassandra-keyspace"),
			Consistency:       gocql.One,
			ConnectionTimeout: 10 * time.Second,
			Mode:              cassstore.Mode(viper.GetString("cassandra-mode")),
			Drop:              true,
		})
	case "hdf5":
		return openHDF5()
	case "table":
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		store, err := tablestore.New(ctx, db, viper.GetString("table"), true)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case "null":
		return bench.NewNullStore(), nil
	}
	return nil, fmt.Errorf("unknown store %s", viper.GetString("store"))
}

func runDocs(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sim := simulator()
	sample := sim.Simulate(0, 0, 0)
	if err := store.Prepare(ctx, sample); err != nil {
		return err
	}

	n := viper.GetInt("records")
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	sw, err := bench.RunInsert(ctx, store, sim, ids, viper.GetInt("batch"), viper.GetFloat64("del-field"))
	if err != nil {
		return err
	}

	field := viper.GetString("field")
	if field == "" {
		field = sim.Layout.Key("f1", "t1", "t2")
	}
	res, err := bench.RunReadField(ctx, store, field)
	if err != nil {
		return err
	}

	threshold := viper.GetFloat64("threshold")
	var above int64
	if counter, ok := store.(bench.AboveCounter); ok {
		if above, err = counter.CountAllAbove(ctx, field, threshold); err != nil {
			return err
		}
	} else {
		above = int64(bench.CountAllAbove(res.Values, threshold))
	}
	log.Infof("%d of %d records have %s above %v", above, len(res.Values), field, threshold)

	report := bench.NewReport(fmt.Sprintf("docs %s: %d records, field %s", store.Name(), n, field))
	report.AddStopwatch("insert", sw)
	report.AddValues("read "+field, res.Elapsed.Seconds(), res.Means)
	report.Render(os.Stdout, viper.GetBool("csv"))

	if m, ok := store.(*mongostore.Store); ok {
		buckets, err := m.MeanHistogram(ctx, field)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			fmt.Printf("%8.1f %d\n", b.Mean, b.Count)
		}
	}
	return nil
}
