// Package main provides the ledgerindexer daemon - an HTTP UTXO ledger
// indexer.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klingon-exchange/ledger-indexer/internal/api"
	"github.com/klingon-exchange/ledger-indexer/internal/config"
	"github.com/klingon-exchange/ledger-indexer/internal/ledger"
	"github.com/klingon-exchange/ledger-indexer/internal/storage"
	"github.com/klingon-exchange/ledger-indexer/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.ledger-indexer", "Data directory")
		httpAddr    = flag.String("addr", "", "HTTP listen address, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("ledgerindexer %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*dataDir)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("Config loaded", "path", config.ConfigPath(*dataDir))

	storeCfg := &storage.Config{DataDir: cfg.Storage.DataDir, DSN: cfg.Storage.DSN}
	store, err := storage.New(storeCfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "dataDir", cfg.Storage.DataDir)

	server := api.NewServer(nil, log.Component("api"))
	engine := ledger.NewEngine(store, log.Component("ledger"), ledger.WithEventSink(server.WSHub()))
	server.SetEngine(engine)

	if err := server.Start(cfg.HTTP.Addr); err != nil {
		log.Fatal("Failed to start HTTP server", "error", err)
	}
	log.Info("Ledger indexer started", "addr", cfg.HTTP.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	if err := server.Stop(); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	log.Info("Goodbye!")
}
