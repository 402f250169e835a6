package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/cmd/common"
	"github.com/kpfaulkner/featuretables/pkg/featuretable"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] dump|export|import\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	store := flag.String("store", "remote", "Storage engine: remote, pebble, badger, bolt, sqlite, redis, memory")
	storePath := flag.String("storepath", ".", "Path of storage location (local engines)")
	addr := flag.String("addr", "localhost:50051", "Tables server address (remote store)")
	redisAddr := flag.String("redisaddr", "localhost:6379", "Redis address (redis store)")
	tableName := flag.String("table", "/features.h5", "Table name")
	tableID := flag.Int64("id", 0, "Table id, takes precedence over the name")
	layoutName := flag.String("layout", "flat", "Feature key layout: flat or path")
	file := flag.String("file", "", "File to export to or import from. Defaults to stdout/stdin")
	batch := flag.Int("batch", 100, "Rows per read or write")
	logLevel := flag.String("loglevel", "info", "Log Level: debug, info, warn, error")
	flag.Usage = usage
	flag.Parse()

	common.SetLogLevel(*logLevel)
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	layout := simulate.FlatLayout
	if *layoutName == "path" {
		layout = simulate.PathLayout
	}

	ctx := context.Background()
	db, err := common.OpenDB(common.StoreConfig{
		Store:      *store,
		Path:       *storePath,
		RedisAddr:  *redisAddr,
		ServerAddr: *addr,
	})
	if err != nil {
		log.Fatalf("failed to create db: %v", err)
	}
	defer db.Close()

	fc, err := featuretable.NewFeatureTableConnection(ctx, db, *tableName)
	if err != nil {
		log.Fatalf("unable to connect: %v", err)
	}

	switch flag.Arg(0) {
	case "dump":
		if _, err := fc.OpenTable(ctx, *tableID, ""); err != nil {
			log.Fatalf("unable to open table: %v", err)
		}
		err = fc.DumpTable(ctx, os.Stdout)
	case "export":
		if _, err := fc.OpenTable(ctx, *tableID, ""); err != nil {
			log.Fatalf("unable to open table: %v", err)
		}
		var w io.Writer = os.Stdout
		if *file != "" {
			f, ferr := os.Create(*file)
			if ferr != nil {
				log.Fatalf("unable to create %s: %v", *file, ferr)
			}
			defer f.Close()
			w = f
		}
		var n int
		n, err = exportTable(ctx, fc, w, layout, int64(*batch))
		log.Infof("exported %d rows", n)
	case "import":
		var r io.Reader = os.Stdin
		if *file != "" {
			f, ferr := os.Open(*file)
			if ferr != nil {
				log.Fatalf("unable to open %s: %v", *file, ferr)
			}
			defer f.Close()
			r = f
		}
		var n int
		n, err = importTable(ctx, fc, r, layout, *batch)
		log.Infof("imported %d rows", n)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
}
