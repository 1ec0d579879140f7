package ports

import (
	"context"
	"errors"

	"trialingestor/internal/ctgov"
	"trialingestor/internal/domain"
)

// ErrNotFound is returned by StudyStore.Get when no study exists for the id.
var ErrNotFound = errors.New("study not found")

// StudySource pulls raw study records from the upstream registry.
type StudySource interface {
	// TestConnection probes the registry with a minimal request; true only
	// if at least one record comes back.
	TestConnection(ctx context.Context) bool

	// Stream yields post-filtered raw records page by page until yield
	// returns false, a page comes back empty, the registry signals no
	// further page, or maxPages is reached. A page-level failure truncates
	// the stream instead of propagating, so callers must treat an early
	// stop as "fewer records than requested".
	Stream(ctx context.Context, filters ctgov.Filters, maxPages int, yield func(ctgov.RawStudy) bool)

	// FetchByID returns a single record, or nil when the registry has no
	// study under that id.
	FetchByID(ctx context.Context, nctID string) (*ctgov.RawStudy, error)
}

// StudyStore persists mapped studies for deduplication and downstream stages.
type StudyStore interface {
	Get(ctx context.Context, nctID string) (*domain.Study, error)
	Save(ctx context.Context, study *domain.Study) (string, error)
	ListIDs(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// ProgressObserver receives live statistics snapshots during a run. Observers
// are purely observational and must not influence control flow.
type ProgressObserver interface {
	OnProgress(stats domain.IngestionStats)
	OnFinish(stats domain.IngestionStats)
}
