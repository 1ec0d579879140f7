package domain

import "time"

// IngestionStats accumulates counters for a single ingestion run. It is owned
// by the orchestrator's control loop and only read by observers.
type IngestionStats struct {
	TotalFetched          int
	SuccessfullyProcessed int
	FailedProcessing      int
	DuplicateStudies      int
	StudiesWithResults    int
	StartTime             time.Time
	EndTime               time.Time
}

// Duration is the wall-clock span of the run; zero until finalized.
func (s IngestionStats) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SuccessRate is successfullyProcessed/totalFetched, 0 for an empty run.
func (s IngestionStats) SuccessRate() float64 {
	if s.TotalFetched == 0 {
		return 0
	}
	return float64(s.SuccessfullyProcessed) / float64(s.TotalFetched)
}

// RunSummary is the per-run JSON report written once at the end of a run.
type RunSummary struct {
	RunID                 string            `json:"runId"`
	Timestamp             time.Time         `json:"timestamp"`
	TotalFetched          int               `json:"totalFetched"`
	SuccessfullyProcessed int               `json:"successfullyProcessed"`
	StudiesWithResults    int               `json:"studiesWithResults"`
	FailedProcessing      int               `json:"failedProcessing"`
	DuplicateStudies      int               `json:"duplicateStudies"`
	DurationSeconds       float64           `json:"durationSeconds"`
	SuccessRate           float64           `json:"successRate"`
	Filters               map[string]string `json:"filters,omitempty"`
}
