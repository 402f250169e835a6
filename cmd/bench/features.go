package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kpfaulkner/featuretables/pkg/bench"
	"github.com/kpfaulkner/featuretables/pkg/featuretable"
)

var featuresCmd = &cobra.Command{
	Use:       "features insert|bulk|read|verify",
	Short:     "Benchmark a feature table",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"insert", "bulk", "read", "verify"},
	RunE:      runFeatures,
}

func init() {
	flags := featuresCmd.Flags()
	flags.Bool("new", false, "Create a new table instead of opening the existing one")
	flags.String("id-column", "id", "Id column name of a new table")
	flags.Int("rows", 100, "Rows to insert (insert, verify) or simulated rows per bulk insert (bulk)")
	flags.Int("repeat", 10, "Number of bulk inserts (bulk)")
	flags.Int64("window", 100, "Rows per read (read)")
	flags.Int64("skip", 0, "Rows to move on between reads, defaults to the window (read)")
	flags.Bool("check", false, "Read back every inserted row (insert)")
	flags.Bool("keep", false, "Compare the last inserted rows at the end (insert, bulk)")
}

func runFeatures(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	fc, err := featuretable.NewFeatureTableConnection(ctx, db, viper.GetString("table"))
	if err != nil {
		return err
	}
	sim := simulator()

	create := viper.GetBool("new") && args[0] != "read"
	if err := bench.Setup(ctx, fc, sim, viper.GetString("id-column"), create); err != nil {
		return err
	}

	report := bench.NewReport(fmt.Sprintf("features %s %s (%d)", args[0], fc.TableName, fc.TableID))
	switch args[0] {
	case "insert", "verify":
		verify := args[0] == "verify"
		keep := viper.GetBool("keep") || verify
		kept, sw, err := bench.Insert(ctx, fc, sim, viper.GetInt("rows"), viper.GetBool("check") || verify, keep)
		if err != nil {
			return err
		}
		report.AddStopwatch("insert", sw)
		if keep {
			if err := bench.CompareLastKeep(ctx, fc, kept); err != nil {
				return err
			}
			log.Infof("last %d rows match", len(kept))
		}
	case "bulk":
		keep := viper.GetBool("keep")
		kept, sw, err := bench.InsertBulkRepeat(ctx, fc, sim, viper.GetInt("rows"), viper.GetInt("repeat"), keep)
		if err != nil {
			return err
		}
		report.AddStopwatch("bulk insert", sw)
		if keep {
			if err := bench.CompareLastKeep(ctx, fc, kept); err != nil {
				return err
			}
			log.Infof("last %d rows match", len(kept))
		}
	case "read":
		sw, err := bench.ReadBulk(ctx, fc, viper.GetInt64("window"), viper.GetInt64("skip"))
		if err != nil {
			return err
		}
		report.AddStopwatch("read", sw)
	}

	rows, err := fc.GetNumberOfRows(ctx)
	if err != nil {
		return err
	}
	log.Infof("table has %d rows", rows)
	report.Render(os.Stdout, viper.GetBool("csv"))
	return nil
}
