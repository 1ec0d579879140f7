package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trialingestor/internal/config"
	"trialingestor/internal/ctgov"
	"trialingestor/internal/ports"
)

// coreFields is the default projection, kept small to stay within the
// registry's URL length limit.
var coreFields = []string{
	"protocolSection.identificationModule.nctId",
	"protocolSection.identificationModule.briefTitle",
	"protocolSection.identificationModule.officialTitle",
	"protocolSection.statusModule.overallStatus",
	"protocolSection.statusModule.whyStopped",
	"protocolSection.designModule.studyType",
	"protocolSection.designModule.phases",
	"protocolSection.conditionsModule.conditions",
	"protocolSection.eligibilityModule.sex",
	"protocolSection.eligibilityModule.minimumAge",
	"protocolSection.eligibilityModule.maximumAge",
	"protocolSection.eligibilityModule.healthyVolunteers",
	"protocolSection.armsInterventionsModule.interventions",
	"protocolSection.outcomesModule.primaryOutcomes",
	"hasResults",
}

// comprehensiveFields pulls every section the mapper knows about in one
// request; only usable where the proxy in front of the registry accepts
// long URLs.
var comprehensiveFields = []string{
	"protocolSection.identificationModule.nctId",
	"protocolSection.identificationModule.briefTitle",
	"protocolSection.identificationModule.officialTitle",
	"protocolSection.identificationModule.orgStudyIdInfo",
	"protocolSection.identificationModule.secondaryIdInfos",
	"protocolSection.identificationModule.organization",
	"protocolSection.descriptionModule.briefSummary",
	"protocolSection.descriptionModule.detailedDescription",
	"protocolSection.statusModule.overallStatus",
	"protocolSection.statusModule.whyStopped",
	"protocolSection.statusModule.studyFirstSubmitDate",
	"protocolSection.statusModule.studyFirstPostDate",
	"protocolSection.statusModule.resultsFirstSubmitDate",
	"protocolSection.statusModule.resultsFirstPostDate",
	"protocolSection.statusModule.lastUpdatePostDate",
	"protocolSection.statusModule.studyStartDate",
	"protocolSection.statusModule.primaryCompletionDate",
	"protocolSection.statusModule.completionDate",
	"protocolSection.sponsorCollaboratorsModule.leadSponsor",
	"protocolSection.sponsorCollaboratorsModule.collaborators",
	"protocolSection.sponsorCollaboratorsModule.responsibleParty",
	"protocolSection.designModule.studyType",
	"protocolSection.designModule.phases",
	"protocolSection.designModule.designInfo",
	"protocolSection.designModule.enrollmentInfo",
	"protocolSection.designModule.targetDuration",
	"protocolSection.conditionsModule.conditions",
	"protocolSection.conditionsModule.keywords",
	"protocolSection.eligibilityModule",
	"protocolSection.armsInterventionsModule",
	"protocolSection.outcomesModule",
	"protocolSection.contactsLocationsModule.locations",
	"protocolSection.oversightModule",
	"resultsSection.participantFlowModule",
	"resultsSection.baselineCharacteristicsModule",
	"resultsSection.outcomeMeasuresModule",
	"hasResults",
}

var probeFields = []string{
	"protocolSection.identificationModule.nctId",
	"protocolSection.identificationModule.briefTitle",
	"hasResults",
}

// Client talks to the registry's paginated search API. One page is in flight
// at a time; the limiter enforces the fixed delay between page requests.
type Client struct {
	cfg     config.APIConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	fields  []string
}

var _ ports.StudySource = (*Client)(nil)

// NewClient wires an HTTP client with the configured per-request timeout.
func NewClient(cfg config.APIConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	delay := cfg.PageDelay.Std()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
		fields:  coreFields,
	}
}

// UseComprehensiveFields switches the projection to the full field set.
func (c *Client) UseComprehensiveFields() {
	c.fields = comprehensiveFields
}

// buildURL constructs the query URL for one page. Server-side filtering uses
// the registry's AREA[<Field>]<Value> clauses joined with " AND ". The
// has-results predicate is never emitted here: the registry accepts no
// working syntax for it, so it is enforced in postFilter. Same for study
// type. A status list collapses to COMPLETED because the registry has no OR
// over the status field; the full list is re-checked client-side.
func (c *Client) buildURL(filters ctgov.Filters, pageToken string) (string, error) {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", c.cfg.BaseURL, err)
	}

	query := parsed.Query()
	query.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
	query.Set("fields", strings.Join(c.fields, ","))

	var terms []string
	if filters.InterventionType != "" {
		terms = append(terms, "AREA[InterventionType]"+filters.InterventionType)
	}
	for _, condition := range filters.Conditions {
		terms = append(terms, "AREA[Condition]"+condition)
	}
	switch {
	case len(filters.Statuses) == 1:
		terms = append(terms, "AREA[OverallStatus]"+filters.Statuses[0])
	case len(filters.Statuses) > 1:
		for _, status := range filters.Statuses {
			if status == "COMPLETED" {
				terms = append(terms, "AREA[OverallStatus]COMPLETED")
				break
			}
		}
	}
	if len(terms) > 0 {
		query.Set("query.term", strings.Join(terms, " AND "))
	}

	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// fetchPage performs a single GET and decodes the page. Non-200 statuses and
// malformed bodies are hard failures for the page.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (*ctgov.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %s", resp.Status)
	}

	var page ctgov.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	return &page, nil
}

// postFilter applies the predicates the registry cannot evaluate server-side,
// preserving record order. A record missing the field under an active
// predicate is dropped.
func postFilter(records []ctgov.RawStudy, filters ctgov.Filters) []ctgov.RawStudy {
	if filters.IsZero() {
		return records
	}

	kept := make([]ctgov.RawStudy, 0, len(records))
	for _, record := range records {
		if filters.HasResults != nil && record.HasResults != *filters.HasResults {
			continue
		}

		if len(filters.Statuses) > 0 {
			status := record.ProtocolSection.Status.OverallStatus
			if !containsString(filters.Statuses, status) {
				continue
			}
		}

		if filters.StudyType != "" {
			studyType := record.ProtocolSection.Design.StudyType
			if !strings.EqualFold(studyType, filters.StudyType) {
				continue
			}
		}

		kept = append(kept, record)
	}

	return kept
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Stream walks pages until yield returns false, a page is empty, the registry
// stops issuing tokens, or maxPages is hit. Page errors are logged and
// truncate the stream so a long run degrades instead of crashing.
func (c *Client) Stream(ctx context.Context, filters ctgov.Filters, maxPages int, yield func(ctgov.RawStudy) bool) {
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}

	var (
		pageToken string
		pageCount int
		total     int
	)

	for pageCount < maxPages {
		pageURL, err := c.buildURL(filters, pageToken)
		if err != nil {
			c.log(slog.LevelError, "stream stopped: bad url", "error", err)
			return
		}

		page, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.log(slog.LevelError, "stream stopped: page fetch failed", "page", pageCount, "error", err)
			return
		}

		if len(page.Studies) == 0 {
			c.log(slog.LevelInfo, "no more studies to fetch", "pages", pageCount)
			return
		}

		records := postFilter(page.Studies, filters)
		for _, record := range records {
			if !yield(record) {
				return
			}
			total++
		}

		pageCount++
		pageToken = page.NextPageToken

		c.log(slog.LevelDebug, "completed page", "page", pageCount, "yielded", total, "total_count", page.TotalCount)

		if pageToken == "" {
			c.log(slog.LevelInfo, "reached end of results", "pages", pageCount)
			return
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
	}
}

// FetchByID fetches a single study via the record-id query term; a study the
// registry does not know is (nil, nil), not an error.
func (c *Client) FetchByID(ctx context.Context, nctID string) (*ctgov.RawStudy, error) {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", c.cfg.BaseURL, err)
	}

	query := parsed.Query()
	query.Set("pageSize", "1")
	query.Set("fields", strings.Join(c.fields, ","))
	query.Set("query.id", nctID)
	parsed.RawQuery = query.Encode()

	page, err := c.fetchPage(ctx, parsed.String())
	if err != nil {
		return nil, fmt.Errorf("fetch study %s: %w", nctID, err)
	}

	if len(page.Studies) == 0 {
		return nil, nil
	}

	return &page.Studies[0], nil
}

// TestConnection probes the registry with a single-record, minimal-field
// request.
func (c *Client) TestConnection(ctx context.Context) bool {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return false
	}

	query := parsed.Query()
	query.Set("pageSize", "1")
	query.Set("fields", strings.Join(probeFields, ","))
	parsed.RawQuery = query.Encode()

	page, err := c.fetchPage(ctx, parsed.String())
	if err != nil {
		c.log(slog.LevelError, "connection test failed", "error", err)
		return false
	}

	if len(page.Studies) == 0 {
		c.log(slog.LevelWarn, "connection ok but no studies returned")
		return false
	}

	return true
}

func (c *Client) log(level slog.Level, msg string, args ...any) {
	if c.logger != nil {
		c.logger.Log(context.Background(), level, msg, args...)
	}
}
