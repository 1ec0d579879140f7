package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"trialingestor/internal/config"
	"trialingestor/internal/infrastructure/metrics"
	"trialingestor/internal/infrastructure/registry"
	"trialingestor/internal/infrastructure/storage"
	"trialingestor/internal/logging"
	"trialingestor/internal/ports"
	"trialingestor/internal/usecase"
)

// RunOptions selects what a single invocation does.
type RunOptions struct {
	// MaxStudies caps the run; 0 means the configured default.
	MaxStudies int
	// NCTID switches to single-study ingestion.
	NCTID string
	// SummaryPath, when set, receives the run summary JSON.
	SummaryPath string
}

// Application wires configs to the ingestion use case.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	ingestor *usecase.Ingestor
	metrics  *metrics.Registry
	db       *sql.DB
}

// New builds a runnable application instance: store backend, registry
// client, observers, orchestrator.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	store, err := app.buildStore(ctx)
	if err != nil {
		return nil, err
	}

	client := registry.NewClient(cfg.API, baseLogger.With("component", "registry"))
	if cfg.API.ComprehensiveFields {
		client.UseComprehensiveFields()
	}

	var observers []ports.ProgressObserver
	if cfg.Metrics.Enabled {
		app.metrics = metrics.NewRegistry()
		observers = append(observers, app.metrics)
	}

	app.ingestor = usecase.NewIngestor(usecase.IngestorDeps{
		Source:    client,
		Store:     store,
		Config:    cfg.Ingestion,
		PageSize:  cfg.API.PageSize,
		Observers: observers,
		Logger:    baseLogger.With("component", "ingestor"),
	})

	return app, nil
}

// Run performs one ingestion invocation.
func (a *Application) Run(ctx context.Context, opts RunOptions) error {
	if a.metrics != nil {
		a.serveMetrics()
	}

	if opts.NCTID != "" {
		study, err := a.ingestor.IngestByID(ctx, opts.NCTID)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", opts.NCTID, err)
		}
		a.logger.Info("ingested study", "nct_id", study.NCTID, "has_results", study.HasResults)
		return nil
	}

	stats := a.ingestor.Run(ctx, opts.MaxStudies)

	if opts.SummaryPath != "" {
		if err := a.writeSummary(opts.SummaryPath, a.ingestor.Summary(stats)); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the database connection, if any.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Application) buildStore(ctx context.Context) (ports.StudyStore, error) {
	switch a.cfg.Database.Backend {
	case "", "json":
		store, err := storage.NewJSONStore(a.cfg.Database.DataDir)
		if err != nil {
			return nil, fmt.Errorf("json store: %w", err)
		}
		return store, nil
	case "postgres":
		db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		return storage.NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", a.cfg.Database.Backend)
	}
}

func (a *Application) writeSummary(path string, summary any) error {
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	a.logger.Info("wrote run summary", "path", path)
	return nil
}

func (a *Application) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	go func() {
		if err := http.ListenAndServe(a.cfg.Metrics.Addr, mux); err != nil {
			a.logger.Error("metrics listener stopped", "error", err)
		}
	}()
}
