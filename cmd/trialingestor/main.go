package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"trialingestor/internal/app"
	"trialingestor/internal/config"
	"trialingestor/internal/logging"
)

func main() {
	maxStudies := flag.Int("max", 0, "maximum studies to ingest this run (0 = configured default)")
	nctID := flag.String("nct-id", "", "ingest a single study by NCT id")
	summaryPath := flag.String("summary", "", "write the run summary JSON to this path")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	err = application.Run(ctx, app.RunOptions{
		MaxStudies:  *maxStudies,
		NCTID:       *nctID,
		SummaryPath: *summaryPath,
	})
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
