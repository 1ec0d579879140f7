package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"trialingestor/internal/config"
	"trialingestor/internal/ctgov"
)

func testConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:   baseURL,
		UserAgent: "trialingestor-test/1.0",
		PageSize:  100,
		MaxPages:  10,
	}
}

func TestBuildURLQueryTerm(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("https://registry.example.org/api/v2/studies"), nil)

	hasResults := true
	filters := ctgov.Filters{
		InterventionType: "BEHAVIORAL",
		Conditions:       []string{"Diabetes", "Obesity"},
		Statuses:         []string{"COMPLETED", "TERMINATED"},
		StudyType:        "INTERVENTIONAL",
		HasResults:       &hasResults,
	}

	raw, err := client.buildURL(filters, "")
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	q := parsed.Query()
	if q.Get("pageSize") != "100" {
		t.Fatalf("expected pageSize=100, got %s", q.Get("pageSize"))
	}
	if q.Get("fields") == "" {
		t.Fatal("expected fields parameter")
	}

	want := "AREA[InterventionType]BEHAVIORAL AND AREA[Condition]Diabetes AND AREA[Condition]Obesity AND AREA[OverallStatus]COMPLETED"
	if got := q.Get("query.term"); got != want {
		t.Fatalf("unexpected query.term:\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildURLSingleStatusVerbatim(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("https://registry.example.org/api/v2/studies"), nil)

	raw, err := client.buildURL(ctgov.Filters{Statuses: []string{"TERMINATED"}}, "tok123")
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}

	parsed, _ := url.Parse(raw)
	q := parsed.Query()

	if got := q.Get("query.term"); got != "AREA[OverallStatus]TERMINATED" {
		t.Fatalf("unexpected query.term: %s", got)
	}
	if q.Get("pageToken") != "tok123" {
		t.Fatalf("expected pageToken=tok123, got %s", q.Get("pageToken"))
	}
}

func TestBuildURLStatusListWithoutCompleted(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("https://registry.example.org/api/v2/studies"), nil)

	raw, err := client.buildURL(ctgov.Filters{Statuses: []string{"TERMINATED", "SUSPENDED"}}, "")
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}

	parsed, _ := url.Parse(raw)
	if term := parsed.Query().Get("query.term"); term != "" {
		t.Fatalf("expected no query.term for status list without COMPLETED, got %s", term)
	}
}

func TestBuildURLNeverEmitsHasResults(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("https://registry.example.org/api/v2/studies"), nil)

	hasResults := true
	raw, err := client.buildURL(ctgov.Filters{HasResults: &hasResults, StudyType: "INTERVENTIONAL"}, "")
	if err != nil {
		t.Fatalf("buildURL returned error: %v", err)
	}

	parsed, _ := url.Parse(raw)
	if term := parsed.Query().Get("query.term"); term != "" {
		t.Fatalf("hasResults/studyType must stay client-side, got query.term=%s", term)
	}
}

func rawStudy(id, status, studyType string, hasResults bool) ctgov.RawStudy {
	return ctgov.RawStudy{
		HasResults: hasResults,
		ProtocolSection: ctgov.ProtocolSection{
			Identification: ctgov.IdentificationModule{NCTID: id},
			Status:         ctgov.StatusModule{OverallStatus: status},
			Design:         ctgov.DesignModule{StudyType: studyType},
		},
	}
}

func TestPostFilter(t *testing.T) {
	t.Parallel()

	records := []ctgov.RawStudy{
		rawStudy("NCT1", "COMPLETED", "INTERVENTIONAL", true),
		rawStudy("NCT2", "COMPLETED", "Interventional", false),
		rawStudy("NCT3", "RECRUITING", "INTERVENTIONAL", true),
		rawStudy("NCT4", "", "OBSERVATIONAL", true),
		rawStudy("NCT5", "COMPLETED", "", true),
	}

	hasResults := true
	filters := ctgov.Filters{
		HasResults: &hasResults,
		Statuses:   []string{"COMPLETED"},
		StudyType:  "INTERVENTIONAL",
	}

	kept := postFilter(records, filters)
	if len(kept) != 1 || kept[0].NCTID() != "NCT1" {
		t.Fatalf("expected only NCT1 to survive, got %d records", len(kept))
	}

	// Case-insensitive study type, no has-results predicate.
	kept = postFilter(records, ctgov.Filters{StudyType: "interventional"})
	if len(kept) != 3 {
		t.Fatalf("expected 3 records for case-insensitive type filter, got %d", len(kept))
	}
	if kept[0].NCTID() != "NCT1" || kept[1].NCTID() != "NCT2" || kept[2].NCTID() != "NCT3" {
		t.Fatal("postFilter must preserve relative order")
	}

	// No filters: input unchanged.
	kept = postFilter(records, ctgov.Filters{})
	if len(kept) != len(records) {
		t.Fatalf("expected all records without filters, got %d", len(kept))
	}
}

func TestStreamPaginates(t *testing.T) {
	t.Parallel()

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("pageToken"))
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{
				"studies": [
					{"protocolSection": {"identificationModule": {"nctId": "NCT1"}}, "hasResults": true},
					{"protocolSection": {"identificationModule": {"nctId": "NCT2"}}, "hasResults": false}
				],
				"nextPageToken": "p2",
				"totalCount": 3
			}`))
			return
		}

		_, _ = w.Write([]byte(`{
			"studies": [
				{"protocolSection": {"identificationModule": {"nctId": "NCT3"}}, "hasResults": true}
			],
			"totalCount": 3
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	var seen []string
	client.Stream(context.Background(), ctgov.Filters{}, 10, func(record ctgov.RawStudy) bool {
		seen = append(seen, record.NCTID())
		return true
	})

	if len(seen) != 3 {
		t.Fatalf("expected 3 records, got %d (%v)", len(seen), seen)
	}
	if len(requests) != 2 || requests[1] != "p2" {
		t.Fatalf("expected second request with pageToken=p2, got %v", requests)
	}
}

func TestStreamTruncatesOnPageError(t *testing.T) {
	t.Parallel()

	var pages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if pages > 1 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{
			"studies": [{"protocolSection": {"identificationModule": {"nctId": "NCT1"}}, "hasResults": true}],
			"nextPageToken": "p2",
			"totalCount": 100
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	var seen int
	client.Stream(context.Background(), ctgov.Filters{}, 10, func(ctgov.RawStudy) bool {
		seen++
		return true
	})

	if seen != 1 {
		t.Fatalf("expected stream to truncate after first page, got %d records", seen)
	}
}

func TestStreamStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"studies": [], "totalCount": 0}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	called := false
	client.Stream(context.Background(), ctgov.Filters{}, 10, func(ctgov.RawStudy) bool {
		called = true
		return true
	})

	if called {
		t.Fatal("expected no records from an empty page")
	}
}

func TestStreamRespectsMaxPages(t *testing.T) {
	t.Parallel()

	var pages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		_, _ = w.Write([]byte(`{
			"studies": [{"protocolSection": {"identificationModule": {"nctId": "NCT1"}}, "hasResults": true}],
			"nextPageToken": "more",
			"totalCount": 1000
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	client.Stream(context.Background(), ctgov.Filters{}, 2, func(ctgov.RawStudy) bool { return true })

	if pages != 2 {
		t.Fatalf("expected exactly 2 pages fetched, got %d", pages)
	}
}

func TestFetchByID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query.id") == "NCT42" {
			_, _ = w.Write([]byte(`{
				"studies": [{"protocolSection": {"identificationModule": {"nctId": "NCT42"}}, "hasResults": true}],
				"totalCount": 1
			}`))
			return
		}
		_, _ = w.Write([]byte(`{"studies": [], "totalCount": 0}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)

	record, err := client.FetchByID(context.Background(), "NCT42")
	if err != nil {
		t.Fatalf("FetchByID error: %v", err)
	}
	if record == nil || record.NCTID() != "NCT42" {
		t.Fatalf("unexpected record: %+v", record)
	}

	record, err = client.FetchByID(context.Background(), "NCT404")
	if err != nil {
		t.Fatalf("FetchByID error for missing study: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for missing study, got %+v", record)
	}
}

func TestTestConnection(t *testing.T) {
	t.Parallel()

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"studies": [{"protocolSection": {"identificationModule": {"nctId": "NCT1"}}, "hasResults": false}],
			"totalCount": 1
		}`))
	}))
	defer okServer.Close()

	if !NewClient(testConfig(okServer.URL), nil).TestConnection(context.Background()) {
		t.Fatal("expected connection test to pass")
	}

	emptyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"studies": [], "totalCount": 0}`))
	}))
	defer emptyServer.Close()

	if NewClient(testConfig(emptyServer.URL), nil).TestConnection(context.Background()) {
		t.Fatal("expected connection test to fail on empty response")
	}

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer downServer.Close()

	if NewClient(testConfig(downServer.URL), nil).TestConnection(context.Background()) {
		t.Fatal("expected connection test to fail on server error")
	}
}

func TestFetchPageRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"studies": [`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	if _, err := client.fetchPage(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
