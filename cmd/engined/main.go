package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/service"
	"github.com/cipherbet/engine/storage"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	datadir := flag.String("datadir", filepath.Join(home, ".engined"), "data directory for the database")
	host := flag.String("host", "0.0.0.0", "API listen host")
	port := flag.Int("port", 8080, "API listen port")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error, fatal)")
	monitorInterval := flag.Duration("monitorInterval", 30*time.Second, "how often the deadline monitor scans the markets")
	skipArtifacts := flag.Bool("skipArtifacts", false, "do not pre-build the proving artifacts at startup")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(db.TypePebble, filepath.Join(*datadir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)

	if !*skipArtifacts {
		start := time.Now()
		if err := service.PrepareArtifacts(10 * time.Minute); err != nil {
			log.Fatal(err)
		}
		log.Infow("proving artifacts ready", "took", time.Since(start).String())
	}

	ctx := context.Background()

	// engine and coordinator: job processor and result processor
	engineService := service.NewEngine(stg, database)
	if err := engineService.Start(ctx); err != nil {
		log.Fatal(err)
	}

	// lock markets whose voting deadline passed
	monitor := service.NewDeadlineMonitor(engineService.Coordinator(), stg, *monitorInterval)
	if err := monitor.Start(ctx); err != nil {
		log.Fatal(err)
	}

	// HTTP API
	apiService := service.NewAPI(stg, engineService.Coordinator(), *host, *port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	log.Infow("settlement node running",
		"host", *host,
		"port", *port,
		"datadir", *datadir,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	monitor.Stop()
	engineService.Stop()
	// the API service closes the shared storage, stop it last
	apiService.Stop()
}
