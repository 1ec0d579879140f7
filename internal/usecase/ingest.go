package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"trialingestor/internal/config"
	"trialingestor/internal/ctgov"
	"trialingestor/internal/domain"
	"trialingestor/internal/mapper"
	"trialingestor/internal/ports"
)

// errDuplicate short-circuits processing of an already-ingested study.
var errDuplicate = errors.New("already exists")

// nonRetryableReasons classify a processing error as permanent by substring,
// case-insensitive. The wording tracks the eligibility reason strings.
var nonRetryableReasons = []string{
	"no results",
	"no primary outcomes",
	"no interventions",
	"not interventional",
	"not completed",
}

// IngestorDeps wires the collaborating adapters into the orchestrator.
type IngestorDeps struct {
	Source        ports.StudySource
	Store         ports.StudyStore
	Config        config.IngestionConfig
	PageSize      int
	CustomFilters ctgov.Filters
	Observers     []ports.ProgressObserver
	Logger        *slog.Logger

	// Sleep is a seam for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Ingestor drives one ingestion run: connectivity check, streaming
// consumption of the registry, dedup against the store, retry-wrapped
// per-record processing and statistics aggregation. Single-threaded by
// contract: one record is fully handled before the next is pulled, which is
// what makes the read-then-write dedup safe without locking.
type Ingestor struct {
	source    ports.StudySource
	store     ports.StudyStore
	cfg       config.IngestionConfig
	pageSize  int
	filters   ctgov.Filters
	observers []ports.ProgressObserver
	logger    *slog.Logger
	sleep     func(time.Duration)
}

// NewIngestor constructs the orchestration component.
func NewIngestor(deps IngestorDeps) *Ingestor {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	return &Ingestor{
		source:    deps.Source,
		store:     deps.Store,
		cfg:       deps.Config,
		pageSize:  pageSize,
		filters:   mergeFilters(deps.Config, deps.CustomFilters),
		observers: deps.Observers,
		logger:    deps.Logger,
		sleep:     sleep,
	}
}

// mergeFilters builds the query filter set: the configured intervention-type
// and condition clauses, overridden field-by-field by any custom filters.
// Results/status/type gating deliberately stays in the eligibility chain,
// not in the query, so that skipped records are visible in the statistics.
func mergeFilters(cfg config.IngestionConfig, custom ctgov.Filters) ctgov.Filters {
	filters := ctgov.Filters{
		InterventionType: cfg.InterventionType,
		Conditions:       cfg.Conditions,
	}

	if custom.InterventionType != "" {
		filters.InterventionType = custom.InterventionType
	}
	if len(custom.Conditions) > 0 {
		filters.Conditions = custom.Conditions
	}
	if len(custom.Statuses) > 0 {
		filters.Statuses = custom.Statuses
	}
	if custom.StudyType != "" {
		filters.StudyType = custom.StudyType
	}
	if custom.HasResults != nil {
		filters.HasResults = custom.HasResults
	}

	return filters
}

// Run executes one ingestion run and always returns finalized statistics,
// even when the connectivity check fails, the stream truncates, or the
// context is cancelled mid-run.
func (i *Ingestor) Run(ctx context.Context, maxStudies int) (stats domain.IngestionStats) {
	if maxStudies <= 0 {
		maxStudies = i.cfg.MaxStudiesPerRun
	}

	stats.StartTime = time.Now().UTC()
	defer func() {
		stats.EndTime = time.Now().UTC()
		i.logSummary(ctx, stats)
		for _, observer := range i.observers {
			observer.OnFinish(stats)
		}
	}()

	i.logger.Info("starting ingestion run", "max_studies", maxStudies, "filters", fmt.Sprintf("%+v", i.filters))

	if !i.source.TestConnection(ctx) {
		i.logger.Error("registry connection test failed, aborting ingestion")
		return stats
	}

	maxPages := maxStudies/i.pageSize + 1
	processed := 0

	i.source.Stream(ctx, i.filters, maxPages, func(raw ctgov.RawStudy) bool {
		if processed >= maxStudies {
			i.logger.Info("reached max studies limit", "max_studies", maxStudies)
			return false
		}

		stats.TotalFetched++

		study, err := i.processWithRetry(ctx, raw)
		switch {
		case err == nil:
			stats.SuccessfullyProcessed++
			if study != nil && study.HasResults {
				stats.StudiesWithResults++
			}
		case errors.Is(err, errDuplicate):
			stats.DuplicateStudies++
		default:
			stats.FailedProcessing++
			if !i.cfg.ContinueOnError {
				i.logger.Error("stopping ingestion due to error", "error", err)
				processed++
				return false
			}
		}

		processed++

		if i.cfg.BatchSize > 0 && processed%i.cfg.BatchSize == 0 {
			i.logger.Info("progress",
				"processed", processed,
				"successful", stats.SuccessfullyProcessed,
				"failed", stats.FailedProcessing)
			for _, observer := range i.observers {
				observer.OnProgress(stats)
			}
		}

		return ctx.Err() == nil
	})

	return stats
}

// IngestByID fetches and processes a single study. A study that is already
// in the store is a benign outcome: the stored study is returned as-is.
func (i *Ingestor) IngestByID(ctx context.Context, nctID string) (*domain.Study, error) {
	i.logger.Info("fetching single study", "nct_id", nctID)

	raw, err := i.source.FetchByID(ctx, nctID)
	if err != nil {
		return nil, fmt.Errorf("fetch study %s: %w", nctID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("study %s not found in registry", nctID)
	}

	study, err := i.processOnce(ctx, *raw)
	if errors.Is(err, errDuplicate) {
		i.logger.Info("study already ingested, skipping", "nct_id", nctID)
		return i.store.Get(ctx, nctID)
	}
	return study, err
}

// Progress reports storage statistics and the effective configuration.
func (i *Ingestor) Progress(ctx context.Context) (map[string]any, error) {
	storageStats, err := i.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage stats: %w", err)
	}

	return map[string]any{
		"storageStats": storageStats,
		"configuration": map[string]any{
			"filterHasResultsOnly": i.cfg.FilterHasResultsOnly,
			"filterCompletedOnly":  i.cfg.FilterCompletedOnly,
			"maxStudiesPerRun":     i.cfg.MaxStudiesPerRun,
			"batchSize":            i.cfg.BatchSize,
		},
	}, nil
}

// Summary assembles the per-run report from finalized statistics.
func (i *Ingestor) Summary(stats domain.IngestionStats) domain.RunSummary {
	filters := map[string]string{}
	if i.filters.InterventionType != "" {
		filters["interventionType"] = i.filters.InterventionType
	}
	if len(i.filters.Conditions) > 0 {
		filters["conditions"] = strings.Join(i.filters.Conditions, ",")
	}
	if len(i.filters.Statuses) > 0 {
		filters["overallStatus"] = strings.Join(i.filters.Statuses, ",")
	}
	if i.filters.StudyType != "" {
		filters["studyType"] = i.filters.StudyType
	}
	if i.filters.HasResults != nil {
		filters["hasResults"] = strconv.FormatBool(*i.filters.HasResults)
	}

	return domain.RunSummary{
		RunID:                 uuid.NewString(),
		Timestamp:             time.Now().UTC(),
		TotalFetched:          stats.TotalFetched,
		SuccessfullyProcessed: stats.SuccessfullyProcessed,
		StudiesWithResults:    stats.StudiesWithResults,
		FailedProcessing:      stats.FailedProcessing,
		DuplicateStudies:      stats.DuplicateStudies,
		DurationSeconds:       stats.Duration().Seconds(),
		SuccessRate:           stats.SuccessRate(),
		Filters:               filters,
	}
}

// processWithRetry wraps processOnce in a bounded retry with linearly
// increasing delay. Duplicates, ineligible records, missing identifiers and
// errors matching the non-retryable vocabulary all short-circuit on the
// first attempt.
func (i *Ingestor) processWithRetry(ctx context.Context, raw ctgov.RawStudy) (*domain.Study, error) {
	attempts := i.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		study, err := i.processOnce(ctx, raw)
		if err == nil || errors.Is(err, errDuplicate) {
			return study, err
		}

		last = err
		if !isRetryable(err) {
			return nil, err
		}

		if attempt < attempts {
			i.sleep(i.cfg.RetryDelay.Std() * time.Duration(attempt))
		}
	}

	return nil, last
}

// processOnce handles one record end to end: identifier extraction, dedup
// lookup, eligibility, mapping, persistence. Dedup runs before eligibility
// and mapping so a re-ingested study costs one store lookup and nothing else.
func (i *Ingestor) processOnce(ctx context.Context, raw ctgov.RawStudy) (*domain.Study, error) {
	nctID, err := mapper.NCTID(raw)
	if err != nil {
		return nil, err
	}

	_, err = i.store.Get(ctx, nctID)
	switch {
	case err == nil:
		i.logger.Debug("study already exists, skipping", "nct_id", nctID)
		return nil, errDuplicate
	case !errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("lookup study %s: %w", nctID, err)
	}

	eligible, reason := ShouldProcess(raw, EligibilityConfig{
		RequireResults: i.cfg.FilterHasResultsOnly,
		CompletedOnly:  i.cfg.FilterCompletedOnly,
	})
	if !eligible {
		return nil, &IneligibleError{Reason: reason}
	}

	study := mapper.ToStudy(raw)
	if _, err := i.store.Save(ctx, study); err != nil {
		return nil, fmt.Errorf("save study %s: %w", nctID, err)
	}

	i.logger.Debug("processed and saved study", "nct_id", nctID)
	return study, nil
}

func isRetryable(err error) bool {
	var ineligible *IneligibleError
	if errors.As(err, &ineligible) {
		return false
	}
	if errors.Is(err, mapper.ErrMissingIdentifier) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, reason := range nonRetryableReasons {
		if strings.Contains(msg, reason) {
			return false
		}
	}
	return true
}

func (i *Ingestor) logSummary(ctx context.Context, stats domain.IngestionStats) {
	i.logger.Info("ingestion summary",
		"total_fetched", stats.TotalFetched,
		"successfully_processed", stats.SuccessfullyProcessed,
		"failed_processing", stats.FailedProcessing,
		"duplicate_studies", stats.DuplicateStudies,
		"studies_with_results", stats.StudiesWithResults,
		"success_rate", fmt.Sprintf("%.2f", stats.SuccessRate()),
		"duration_seconds", fmt.Sprintf("%.1f", stats.Duration().Seconds()))

	if storageStats, err := i.store.Stats(ctx); err == nil {
		i.logger.Info("storage stats", "counts", fmt.Sprintf("%v", storageStats))
	}
}
