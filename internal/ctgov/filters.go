package ctgov

// Filters narrows a registry query. InterventionType, Conditions and a single
// status translate to server-side AREA clauses; HasResults and StudyType are
// only evaluated client-side because the API rejects or ignores them, and a
// multi-status set collapses server-side to COMPLETED (the API has no OR over
// the status field) with the full set re-checked after the fetch.
type Filters struct {
	InterventionType string
	Conditions       []string
	Statuses         []string
	StudyType        string
	HasResults       *bool
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.InterventionType == "" &&
		len(f.Conditions) == 0 &&
		len(f.Statuses) == 0 &&
		f.StudyType == "" &&
		f.HasResults == nil
}
