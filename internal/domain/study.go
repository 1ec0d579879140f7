package domain

import "time"

// StudyStatus is the registry's overall-status code for a study.
type StudyStatus string

const (
	StatusCompleted             StudyStatus = "COMPLETED"
	StatusTerminated            StudyStatus = "TERMINATED"
	StatusSuspended             StudyStatus = "SUSPENDED"
	StatusWithdrawn             StudyStatus = "WITHDRAWN"
	StatusActiveNotRecruiting   StudyStatus = "ACTIVE_NOT_RECRUITING"
	StatusRecruiting            StudyStatus = "RECRUITING"
	StatusNotYetRecruiting      StudyStatus = "NOT_YET_RECRUITING"
	StatusEnrollingByInvitation StudyStatus = "ENROLLING_BY_INVITATION"
	StatusAvailable             StudyStatus = "AVAILABLE"
	StatusNoLongerAvailable     StudyStatus = "NO_LONGER_AVAILABLE"
	StatusTemporarilyNotAvail   StudyStatus = "TEMPORARILY_NOT_AVAILABLE"
	StatusApprovedForMarketing  StudyStatus = "APPROVED_FOR_MARKETING"
	StatusUnknown               StudyStatus = "UNKNOWN"
)

// Intervention is one intervention arm of a study.
type Intervention struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Description    string   `json:"description,omitempty"`
	ArmGroupLabels []string `json:"armGroupLabels,omitempty"`
}

// PrimaryOutcome is a primary outcome measure of a study.
type PrimaryOutcome struct {
	Measure     string `json:"measure"`
	TimeFrame   string `json:"timeFrame"`
	Description string `json:"description,omitempty"`
	Population  string `json:"population,omitempty"`
}

// SecondaryOutcome is a secondary outcome measure of a study.
type SecondaryOutcome struct {
	Measure     string `json:"measure"`
	TimeFrame   string `json:"timeFrame"`
	Description string `json:"description,omitempty"`
	Population  string `json:"population,omitempty"`
}

// Study is the domain entity produced by the field mapper, keyed by the
// registry's NCT identifier. The mapper fills everything except CreatedAt
// and UpdatedAt, which the store owns.
type Study struct {
	NCTID         string `json:"nctId"`
	BriefTitle    string `json:"briefTitle"`
	OfficialTitle string `json:"officialTitle,omitempty"`

	BriefSummary        string `json:"briefSummary,omitempty"`
	DetailedDescription string `json:"detailedDescription,omitempty"`

	Conditions     []string    `json:"conditions,omitempty"`
	Phases         []string    `json:"phases,omitempty"`
	StudyType      string      `json:"studyType,omitempty"`
	PrimaryPurpose string      `json:"primaryPurpose,omitempty"`
	OverallStatus  StudyStatus `json:"overallStatus"`
	WhyStopped     string      `json:"whyStopped,omitempty"`
	HasResults     bool        `json:"hasResults"`

	FirstPosted           *time.Time `json:"firstPosted,omitempty"`
	ResultsFirstPosted    *time.Time `json:"resultsFirstPosted,omitempty"`
	LastUpdatePosted      *time.Time `json:"lastUpdatePosted,omitempty"`
	StudyFirstSubmitted   *time.Time `json:"studyFirstSubmitted,omitempty"`
	StudyStartDate        *time.Time `json:"studyStartDate,omitempty"`
	PrimaryCompletionDate *time.Time `json:"primaryCompletionDate,omitempty"`
	CompletionDate        *time.Time `json:"completionDate,omitempty"`
	ResultsFirstSubmitted *time.Time `json:"resultsFirstSubmitted,omitempty"`

	LeadSponsorName              string   `json:"leadSponsorName"`
	LeadSponsorClass             string   `json:"leadSponsorClass,omitempty"`
	Collaborators                []string `json:"collaborators,omitempty"`
	ResponsiblePartyType         string   `json:"responsiblePartyType,omitempty"`
	ResponsiblePartyInvestigator string   `json:"responsiblePartyInvestigator,omitempty"`

	Allocation                   string `json:"allocation,omitempty"`
	InterventionModel            string `json:"interventionModel,omitempty"`
	InterventionModelDescription string `json:"interventionModelDescription,omitempty"`
	Masking                      string `json:"masking,omitempty"`
	MaskingDescription           string `json:"maskingDescription,omitempty"`

	EnrollmentCount *int   `json:"enrollmentCount,omitempty"`
	EnrollmentType  string `json:"enrollmentType,omitempty"`
	TargetDuration  string `json:"targetDuration,omitempty"`

	Countries []string `json:"countries,omitempty"`
	Locations []string `json:"locations,omitempty"`

	MinimumAge               string `json:"minimumAge,omitempty"`
	MaximumAge               string `json:"maximumAge,omitempty"`
	Sex                      string `json:"sex,omitempty"`
	AcceptsHealthyVolunteers *bool  `json:"acceptsHealthyVolunteers,omitempty"`
	EligibilityCriteria      string `json:"eligibilityCriteria,omitempty"`

	OrganizationStudyID  string   `json:"organizationStudyId,omitempty"`
	SecondaryIDs         []string `json:"secondaryIds,omitempty"`
	OversightHasDMC      *bool    `json:"oversightHasDmc,omitempty"`
	IsFDARegulatedDrug   *bool    `json:"isFdaRegulatedDrug,omitempty"`
	IsFDARegulatedDevice *bool    `json:"isFdaRegulatedDevice,omitempty"`

	Interventions     []Intervention     `json:"interventions,omitempty"`
	PrimaryOutcomes   []PrimaryOutcome   `json:"primaryOutcomes,omitempty"`
	SecondaryOutcomes []SecondaryOutcome `json:"secondaryOutcomes,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
