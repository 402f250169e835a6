package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpfaulkner/featuretables/cmd/common"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
	"github.com/kpfaulkner/featuretables/pkg/storage"
)

var (
	// RootCmd is the base command of the benchmark tool
	RootCmd = &cobra.Command{
		Use:   "bench",
		Short: "feature table and document store benchmarks",
		Long: `Benchmarks of simulated feature data.

features runs insert and read benchmarks against a feature table,
docs compares document stores (mongo, cassandra, hdf5) with feature tables.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.AddCommand(featuresCmd)
	RootCmd.AddCommand(docsCmd)

	flags := RootCmd.PersistentFlags()
	flags.String("loglevel", "info", "Log level: debug, info, warn, error")
	flags.String("engine", "remote", "Table storage: remote, pebble, badger, bolt, sqlite, redis, memory")
	flags.String("addr", "localhost:50051", "Tables server address (remote engine)")
	flags.String("storepath", ".", "Path of local storage engines")
	flags.String("redis-addr", "localhost:6379", "Redis address (redis engine)")
	flags.String("table", "/features.h5", "Feature table name")
	flags.String("layout", "flat", "Feature key layout: flat or path")
	flags.Uint64("seed", 1, "Random seed of the simulator")
	flags.Bool("csv", false, "Print results as CSV")
}

// initConfig reads .env files and the FEATURETABLES_ environment.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("featuretables")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	common.SetLogLevel(viper.GetString("loglevel"))
	return nil
}

func layout() simulate.Layout {
	if viper.GetString("layout") == "path" {
		return simulate.PathLayout
	}
	return simulate.FlatLayout
}

func simulator() *simulate.Simulator {
	return simulate.NewSimulator(layout(), viper.GetUint64("seed"))
}

func openDB() (storage.DB, error) {
	return common.OpenDB(common.StoreConfig{
		Store:      viper.GetString("engine"),
		Path:       viper.GetString("storepath"),
		RedisAddr:  viper.GetString("redis-addr"),
		ServerAddr: viper.GetString("addr"),
	})
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
