package usecase

import (
	"fmt"
	"strings"

	"trialingestor/internal/ctgov"
)

// EligibilityConfig toggles the two optional predicates of the chain.
type EligibilityConfig struct {
	RequireResults bool
	CompletedOnly  bool
}

// allowedStatuses is the "completed-only" allow-list. It intentionally
// includes ACTIVE_NOT_RECRUITING and ENROLLING_BY_INVITATION; downstream
// consumers depend on this exact set.
var allowedStatuses = []string{
	"COMPLETED",
	"ACTIVE_NOT_RECRUITING",
	"ENROLLING_BY_INVITATION",
}

// IneligibleError marks a record that failed a business-rule predicate.
// Retrying cannot change the outcome, so the orchestrator never retries it.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return e.Reason
}

// ShouldProcess decides whether a raw record qualifies for ingestion. The
// predicates run in a fixed order and the first failure supplies the reason;
// the reason text feeds retry classification, so wording changes here are
// breaking.
func ShouldProcess(raw ctgov.RawStudy, cfg EligibilityConfig) (bool, string) {
	if cfg.RequireResults && !raw.HasResults {
		return false, "No results posted"
	}

	studyType := raw.ProtocolSection.Design.StudyType
	if !strings.EqualFold(studyType, "INTERVENTIONAL") {
		return false, fmt.Sprintf("Not interventional study: %s", studyType)
	}

	if cfg.CompletedOnly {
		status := raw.ProtocolSection.Status.OverallStatus
		allowed := false
		for _, s := range allowedStatuses {
			if status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, fmt.Sprintf("Study not in allowed statuses: %s", status)
		}
	}

	if len(raw.ProtocolSection.ArmsInterventions.Interventions) == 0 {
		return false, "No interventions defined"
	}

	if len(raw.ProtocolSection.Outcomes.PrimaryOutcomes) == 0 {
		return false, "No primary outcomes defined"
	}

	return true, ""
}
