// Command server runs the chainwatch ingestion and enrichment pipeline:
// it builds the dependency container, migrates the persistence schema,
// starts one chain worker per selected chain under the Supervisor, and
// shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chainwatch/internal/logger"
	"chainwatch/internal/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	chainsFlag := flag.String("chains", "all", `comma-separated chain names to process, or "all"`)
	flag.Parse()

	container, err := wire.BuildContainer()
	if err != nil {
		os.Stderr.WriteString("failed to build dependency container: " + err.Error() + "\n")
		return 1
	}

	log := container.Core.Logger

	if err := container.Core.DB.Migrate(); err != nil {
		log.Error("failed to migrate database", logger.Error(err))
		return 1
	}

	selection := splitChains(*chainsFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.Supervisor.Start(ctx, selection); err != nil {
		log.Error("failed to start supervisor", logger.Error(err))
		return 1
	}

	log.Info("chainwatch is running", logger.String("chains", *chainsFlag))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("received shutdown signal, stopping workers")
	case <-container.Supervisor.Done():
		log.Error("persistence layer failed permanently, stopping workers",
			logger.Error(container.Supervisor.FatalErr()))
	}

	if err := container.Supervisor.Stop(context.Background()); err != nil {
		log.Error("error during shutdown", logger.Error(err))
		return 1
	}

	if err := container.Supervisor.FatalErr(); err != nil {
		return 1
	}

	log.Info("chainwatch stopped cleanly")
	return 0
}

func splitChains(raw string) []string {
	fields := strings.Split(raw, ",")
	selection := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			selection = append(selection, f)
		}
	}
	return selection
}
