// Package mapper projects raw registry records onto the domain Study. The
// projection is total for every record carrying an identifier: missing
// optional fields degrade to empty values instead of failing, so partial
// upstream records still produce usable studies.
package mapper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trialingestor/internal/ctgov"
	"trialingestor/internal/domain"
)

// ErrMissingIdentifier marks a record without an NCT id. It is the only
// fatal mapping condition; retrying cannot fix malformed input.
var ErrMissingIdentifier = errors.New("study missing required NCT ID")

var statusTable = map[string]domain.StudyStatus{
	"COMPLETED":                 domain.StatusCompleted,
	"TERMINATED":                domain.StatusTerminated,
	"SUSPENDED":                 domain.StatusSuspended,
	"WITHDRAWN":                 domain.StatusWithdrawn,
	"ACTIVE_NOT_RECRUITING":     domain.StatusActiveNotRecruiting,
	"RECRUITING":                domain.StatusRecruiting,
	"NOT_YET_RECRUITING":        domain.StatusNotYetRecruiting,
	"ENROLLING_BY_INVITATION":   domain.StatusEnrollingByInvitation,
	"AVAILABLE":                 domain.StatusAvailable,
	"NO_LONGER_AVAILABLE":       domain.StatusNoLongerAvailable,
	"TEMPORARILY_NOT_AVAILABLE": domain.StatusTemporarilyNotAvail,
	"APPROVED_FOR_MARKETING":    domain.StatusApprovedForMarketing,
}

// NCTID extracts and validates the record's identifier.
func NCTID(raw ctgov.RawStudy) (string, error) {
	id := raw.NCTID()
	if id == "" {
		return "", ErrMissingIdentifier
	}
	return id, nil
}

// ToStudy maps a raw record onto the domain Study. It never fails; callers
// validate the identifier with NCTID first. CreatedAt/UpdatedAt stay zero,
// the store owns them.
func ToStudy(raw ctgov.RawStudy) *domain.Study {
	protocol := raw.ProtocolSection
	identification := protocol.Identification
	status := protocol.Status
	design := protocol.Design
	eligibility := protocol.Eligibility
	sponsor := protocol.Sponsor

	study := &domain.Study{
		NCTID:         identification.NCTID,
		BriefTitle:    identification.BriefTitle,
		OfficialTitle: identification.OfficialTitle,

		BriefSummary:        protocol.Description.BriefSummary,
		DetailedDescription: protocol.Description.DetailedDescription,

		Conditions:     protocol.Conditions.Conditions,
		Phases:         design.Phases,
		StudyType:      design.StudyType,
		PrimaryPurpose: design.DesignInfo.PrimaryPurpose,
		OverallStatus:  MapStatus(status.OverallStatus),
		WhyStopped:     status.WhyStopped,
		HasResults:     raw.HasResults,

		FirstPosted:           ParseDate(status.StudyFirstPostDate),
		ResultsFirstPosted:    ParseDate(status.ResultsFirstPostDate),
		LastUpdatePosted:      ParseDate(status.LastUpdatePostDate),
		StudyFirstSubmitted:   ParseDate(status.StudyFirstSubmitDate),
		StudyStartDate:        ParseDate(status.StudyStartDate),
		PrimaryCompletionDate: ParseDate(status.PrimaryCompletionDate),
		CompletionDate:        ParseDate(status.CompletionDate),
		ResultsFirstSubmitted: ParseDate(status.ResultsFirstSubmitDate),

		LeadSponsorName:              sponsorName(sponsor.LeadSponsor),
		LeadSponsorClass:             sponsor.LeadSponsor.Class,
		Collaborators:                collaboratorNames(sponsor.Collaborators),
		ResponsiblePartyType:         sponsor.ResponsibleParty.Type,
		ResponsiblePartyInvestigator: sponsor.ResponsibleParty.InvestigatorFullName,

		Allocation:                   design.DesignInfo.Allocation,
		InterventionModel:            design.DesignInfo.InterventionModel,
		InterventionModelDescription: design.DesignInfo.InterventionModelDescription,
		Masking:                      design.DesignInfo.MaskingInfo.Masking,
		MaskingDescription:           design.DesignInfo.MaskingInfo.MaskingDescription,

		EnrollmentCount: SafeInt(design.EnrollmentInfo.Count),
		EnrollmentType:  design.EnrollmentInfo.Type,
		TargetDuration:  design.TargetDuration,

		MinimumAge:               eligibility.MinimumAge,
		MaximumAge:               eligibility.MaximumAge,
		Sex:                      eligibility.Sex,
		AcceptsHealthyVolunteers: HealthyVolunteers(eligibility.HealthyVolunteers),
		EligibilityCriteria:      eligibility.EligibilityCriteria,

		OrganizationStudyID: identification.OrgStudyIDInfo.ID,
		SecondaryIDs:        secondaryIDs(identification.SecondaryIDInfos),

		OversightHasDMC:      protocol.Oversight.OversightHasDMC,
		IsFDARegulatedDrug:   protocol.Oversight.IsFDARegulatedDrug,
		IsFDARegulatedDevice: protocol.Oversight.IsFDARegulatedDevice,

		Interventions:     ExtractInterventions(protocol),
		PrimaryOutcomes:   ExtractPrimaryOutcomes(protocol),
		SecondaryOutcomes: ExtractSecondaryOutcomes(protocol),
	}

	study.Countries, study.Locations = extractGeography(protocol.ContactsLocations.Locations)

	if study.Conditions == nil {
		study.Conditions = []string{}
	}
	if study.Phases == nil {
		study.Phases = []string{}
	}

	return study
}

// MapStatus translates the registry status code; the table is
// case-sensitive and anything unrecognized falls back to UNKNOWN.
func MapStatus(code string) domain.StudyStatus {
	if status, ok := statusTable[code]; ok {
		return status
	}
	return domain.StatusUnknown
}

// ParseDate turns the registry's partial year/month/day structure into a
// time. Month and day default to 1; a missing year or any non-numeric
// component yields nil rather than an error.
func ParseDate(date *ctgov.PartialDate) *time.Time {
	if date == nil {
		return nil
	}

	year := SafeInt(date.Year)
	if year == nil {
		return nil
	}

	month := 1
	if date.Month != nil {
		m := SafeInt(date.Month)
		if m == nil {
			return nil
		}
		month = *m
	}

	day := 1
	if date.Day != nil {
		d := SafeInt(date.Day)
		if d == nil {
			return nil
		}
		day = *d
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	t := time.Date(*year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

// SafeInt coerces numbers and numeric strings; anything else is nil.
func SafeInt(value any) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		return &v
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// HealthyVolunteers maps the upstream value to a tri-state: the registry
// emits booleans on newer records and free text ("Accepts Healthy
// Volunteers" / "No") on older ones; anything unrecognized is nil.
func HealthyVolunteers(value any) *bool {
	switch v := value.(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "accepts healthy volunteers", "yes", "true":
			yes := true
			return &yes
		case "no", "false":
			no := false
			return &no
		}
	}
	return nil
}

// ExtractInterventions lifts the arms/interventions section; an absent
// section yields an empty slice. Unnamed interventions get a positional
// placeholder so downstream display never shows a blank.
func ExtractInterventions(protocol ctgov.ProtocolSection) []domain.Intervention {
	raw := protocol.ArmsInterventions.Interventions
	interventions := make([]domain.Intervention, 0, len(raw))

	for i, item := range raw {
		name := item.Name
		if name == "" {
			name = fmt.Sprintf("Intervention %d", i+1)
		}
		kind := item.Type
		if kind == "" {
			kind = "OTHER"
		}

		labels := item.ArmGroupLabels
		if labels == nil {
			labels = []string{}
		}

		interventions = append(interventions, domain.Intervention{
			Name:           name,
			Type:           kind,
			Description:    item.Description,
			ArmGroupLabels: labels,
		})
	}

	return interventions
}

// ExtractPrimaryOutcomes lifts the primary outcome measures; an absent
// section yields an empty slice.
func ExtractPrimaryOutcomes(protocol ctgov.ProtocolSection) []domain.PrimaryOutcome {
	raw := protocol.Outcomes.PrimaryOutcomes
	outcomes := make([]domain.PrimaryOutcome, 0, len(raw))

	for i, item := range raw {
		measure := item.Measure
		if measure == "" {
			measure = fmt.Sprintf("Primary Outcome %d", i+1)
		}
		timeFrame := item.TimeFrame
		if timeFrame == "" {
			timeFrame = "Not specified"
		}

		outcomes = append(outcomes, domain.PrimaryOutcome{
			Measure:     measure,
			TimeFrame:   timeFrame,
			Description: item.Description,
		})
	}

	return outcomes
}

// ExtractSecondaryOutcomes lifts the secondary outcome measures; an absent
// section yields an empty slice.
func ExtractSecondaryOutcomes(protocol ctgov.ProtocolSection) []domain.SecondaryOutcome {
	raw := protocol.Outcomes.SecondaryOutcomes
	outcomes := make([]domain.SecondaryOutcome, 0, len(raw))

	for i, item := range raw {
		measure := item.Measure
		if measure == "" {
			measure = fmt.Sprintf("Secondary Outcome %d", i+1)
		}
		timeFrame := item.TimeFrame
		if timeFrame == "" {
			timeFrame = "Not specified"
		}

		outcomes = append(outcomes, domain.SecondaryOutcome{
			Measure:     measure,
			TimeFrame:   timeFrame,
			Description: item.Description,
		})
	}

	return outcomes
}

func extractGeography(locations []ctgov.Location) (countries, places []string) {
	countries = []string{}
	places = []string{}
	seen := map[string]struct{}{}

	for _, loc := range locations {
		if loc.Country != "" {
			if _, ok := seen[loc.Country]; !ok {
				seen[loc.Country] = struct{}{}
				countries = append(countries, loc.Country)
			}
		}

		switch {
		case loc.City != "" && loc.State != "":
			places = append(places, loc.City+", "+loc.State)
		case loc.City != "":
			places = append(places, loc.City)
		}
	}

	return countries, places
}

func sponsorName(lead ctgov.Sponsor) string {
	if lead.Name == "" {
		return "Unknown Sponsor"
	}
	return lead.Name
}

func collaboratorNames(collaborators []ctgov.Sponsor) []string {
	names := make([]string, 0, len(collaborators))
	for _, c := range collaborators {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}

func secondaryIDs(infos []ctgov.SecondaryIDInfo) []string {
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.ID != "" {
			ids = append(ids, info.ID)
		}
	}
	return ids
}
