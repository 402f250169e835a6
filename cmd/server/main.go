package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/featuretables/cmd/common"
	"github.com/kpfaulkner/featuretables/pkg/server"
)

func main() {
	fmt.Printf("So it begins...\n")
	port := flag.Int("port", 50051, "The server port")
	logLevel := flag.String("loglevel", "info", "Log Level: debug, info, warn, error")
	store := flag.String("store", "memory", "Storage engine: pebble, badger, bolt, sqlite, redis, memory, null")
	storePath := flag.String("storepath", ".", "Path of storage location (if persist to local disk)")
	redisAddr := flag.String("redisaddr", "localhost:6379", "Redis address (redis store)")
	redisPassword := flag.String("redispassword", "", "Redis password (redis store)")
	redisDB := flag.Int("redisdb", 0, "Redis database (redis store)")
	redisNamespace := flag.String("redisnamespace", "featuretables", "Redis key namespace (redis store)")
	metricsAddr := flag.String("metrics", "", "Address to serve prometheus metrics on, e.g. :9090. Empty disables")

	flag.Parse()

	common.SetLogLevel(*logLevel)

	db, err := common.OpenDB(common.StoreConfig{
		Store:          *store,
		Path:           *storePath,
		RedisAddr:      *redisAddr,
		RedisPassword:  *redisPassword,
		RedisDB:        *redisDB,
		RedisNamespace: *redisNamespace,
	})
	if err != nil {
		log.Fatalf("failed to create db: %v", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	var metrics *server.Metrics
	if *metricsAddr != "" {
		metrics = server.NewMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server stopped: %v", err)
			}
		}()
		log.Infof("serving metrics on %s/metrics", *metricsAddr)
	}

	tablesServer := server.NewTablesServer(db, metrics)
	grpcServer := server.NewGRPCServer(tablesServer)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Infof("shutting down")
		grpcServer.GracefulStop()
	}()

	log.Infof("listening on %d", *port)
	if err := grpcServer.Serve(lis); err != nil {
		log.Errorf("serve failed: %v", err)
	}
	tablesServer.Stop()
	if err := db.Close(); err != nil {
		log.Errorf("unable to close db: %v", err)
	}
}
