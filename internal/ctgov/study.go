package ctgov

// RawStudy is one study as returned by the registry search API. The
// hasResults flag sits at the record root, next to the protocol section,
// exactly as the API emits it. Missing sections decode to zero values so
// partial records stay representable.
type RawStudy struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
	ResultsSection  *ResultsSection `json:"resultsSection,omitempty"`
	HasResults      bool            `json:"hasResults"`
}

// NCTID returns the study's registry identifier, empty when absent.
func (s RawStudy) NCTID() string {
	return s.ProtocolSection.Identification.NCTID
}

// ProtocolSection groups the protocol-side modules of a study record.
type ProtocolSection struct {
	Identification    IdentificationModule    `json:"identificationModule"`
	Description       DescriptionModule       `json:"descriptionModule"`
	Status            StatusModule            `json:"statusModule"`
	Sponsor           SponsorModule           `json:"sponsorCollaboratorsModule"`
	Design            DesignModule            `json:"designModule"`
	Conditions        ConditionsModule        `json:"conditionsModule"`
	Eligibility       EligibilityModule       `json:"eligibilityModule"`
	ArmsInterventions ArmsInterventionsModule `json:"armsInterventionsModule"`
	Outcomes          OutcomesModule          `json:"outcomesModule"`
	ContactsLocations ContactsLocationsModule `json:"contactsLocationsModule"`
	Oversight         OversightModule         `json:"oversightModule"`
}

type IdentificationModule struct {
	NCTID            string            `json:"nctId"`
	BriefTitle       string            `json:"briefTitle"`
	OfficialTitle    string            `json:"officialTitle"`
	OrgStudyIDInfo   OrgStudyIDInfo    `json:"orgStudyIdInfo"`
	SecondaryIDInfos []SecondaryIDInfo `json:"secondaryIdInfos"`
	Organization     Organization      `json:"organization"`
}

type OrgStudyIDInfo struct {
	ID string `json:"id"`
}

type SecondaryIDInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type Organization struct {
	FullName string `json:"fullName"`
	Class    string `json:"class"`
}

type DescriptionModule struct {
	BriefSummary        string `json:"briefSummary"`
	DetailedDescription string `json:"detailedDescription"`
}

// StatusModule carries the overall status and the registry's partial dates.
type StatusModule struct {
	OverallStatus          string       `json:"overallStatus"`
	WhyStopped             string       `json:"whyStopped"`
	StudyFirstSubmitDate   *PartialDate `json:"studyFirstSubmitDate"`
	StudyFirstPostDate     *PartialDate `json:"studyFirstPostDate"`
	ResultsFirstSubmitDate *PartialDate `json:"resultsFirstSubmitDate"`
	ResultsFirstPostDate   *PartialDate `json:"resultsFirstPostDate"`
	LastUpdatePostDate     *PartialDate `json:"lastUpdatePostDate"`
	StudyStartDate         *PartialDate `json:"studyStartDate"`
	PrimaryCompletionDate  *PartialDate `json:"primaryCompletionDate"`
	CompletionDate         *PartialDate `json:"completionDate"`
}

// PartialDate is the registry's year/month/day structure. Components arrive
// as numbers or strings depending on the record's age, so they stay untyped
// until the mapper coerces them.
type PartialDate struct {
	Year  any `json:"year"`
	Month any `json:"month"`
	Day   any `json:"day"`
}

type SponsorModule struct {
	LeadSponsor      Sponsor          `json:"leadSponsor"`
	Collaborators    []Sponsor        `json:"collaborators"`
	ResponsibleParty ResponsibleParty `json:"responsibleParty"`
}

type Sponsor struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

type ResponsibleParty struct {
	Type                 string `json:"type"`
	InvestigatorFullName string `json:"investigatorFullName"`
}

type DesignModule struct {
	StudyType      string         `json:"studyType"`
	Phases         []string       `json:"phases"`
	DesignInfo     DesignInfo     `json:"designInfo"`
	EnrollmentInfo EnrollmentInfo `json:"enrollmentInfo"`
	TargetDuration string         `json:"targetDuration"`
}

type DesignInfo struct {
	Allocation                   string      `json:"allocation"`
	InterventionModel            string      `json:"interventionModel"`
	InterventionModelDescription string      `json:"interventionModelDescription"`
	PrimaryPurpose               string      `json:"primaryPurpose"`
	MaskingInfo                  MaskingInfo `json:"maskingInfo"`
}

type MaskingInfo struct {
	Masking            string `json:"masking"`
	MaskingDescription string `json:"maskingDescription"`
}

// EnrollmentInfo count is untyped for the same reason as PartialDate.
type EnrollmentInfo struct {
	Count any    `json:"count"`
	Type  string `json:"type"`
}

type ConditionsModule struct {
	Conditions []string `json:"conditions"`
	Keywords   []string `json:"keywords"`
}

// EligibilityModule: healthyVolunteers is free text ("Accepts Healthy
// Volunteers" / "No") on older records and a boolean on newer ones.
type EligibilityModule struct {
	Sex                 string   `json:"sex"`
	MinimumAge          string   `json:"minimumAge"`
	MaximumAge          string   `json:"maximumAge"`
	HealthyVolunteers   any      `json:"healthyVolunteers"`
	EligibilityCriteria string   `json:"eligibilityCriteria"`
	StdAges             []string `json:"stdAges"`
}

type ArmsInterventionsModule struct {
	ArmGroups     []ArmGroup        `json:"armGroups"`
	Interventions []RawIntervention `json:"interventions"`
}

type ArmGroup struct {
	Label             string   `json:"label"`
	Type              string   `json:"type"`
	Description       string   `json:"description"`
	InterventionNames []string `json:"interventionNames"`
}

type RawIntervention struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	ArmGroupLabels []string `json:"armGroupLabels"`
}

type OutcomesModule struct {
	PrimaryOutcomes   []RawOutcome `json:"primaryOutcomes"`
	SecondaryOutcomes []RawOutcome `json:"secondaryOutcomes"`
	OtherOutcomes     []RawOutcome `json:"otherOutcomes"`
}

type RawOutcome struct {
	Measure     string `json:"measure"`
	TimeFrame   string `json:"timeFrame"`
	Description string `json:"description"`
}

type ContactsLocationsModule struct {
	Locations []Location `json:"locations"`
}

type Location struct {
	Facility string `json:"facility"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

type OversightModule struct {
	OversightHasDMC      *bool `json:"oversightHasDmc"`
	IsFDARegulatedDrug   *bool `json:"isFdaRegulatedDrug"`
	IsFDARegulatedDevice *bool `json:"isFdaRegulatedDevice"`
}

// ResultsSection is carried opaquely; the ingestion pipeline only records
// its presence, downstream extraction consumes it.
type ResultsSection struct {
	ParticipantFlowModule         map[string]any `json:"participantFlowModule,omitempty"`
	BaselineCharacteristicsModule map[string]any `json:"baselineCharacteristicsModule,omitempty"`
	OutcomeMeasuresModule         map[string]any `json:"outcomeMeasuresModule,omitempty"`
}

// Page is one page of the paginated studies response.
type Page struct {
	Studies       []RawStudy `json:"studies"`
	NextPageToken string     `json:"nextPageToken"`
	TotalCount    int        `json:"totalCount"`
}
