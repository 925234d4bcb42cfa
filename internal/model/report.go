package model

import "time"

// SourceStatus summarizes how a single source's harvest pass ended.
type SourceStatus string

const (
	SourceSuccess        SourceStatus = "success"
	SourcePartialFailure SourceStatus = "partial_failure"
	SourceHardFailure    SourceStatus = "hard_failure"
	SourceSkipped        SourceStatus = "skipped"
)

// RowError records a single row that failed normalization. The row is
// dropped from output; the error is attached to the source outcome instead
// of failing the whole source.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ExcludedRow is the audit side channel for rows deliberately excluded from
// results, e.g. pre-start withdrawals. Kept separate so excluded rows are
// never conflated with placed results.
type ExcludedRow struct {
	Row       int    `json:"row"`
	Animal    string `json:"animal,omitempty"`
	RawStatus string `json:"raw_status"`
	Reason    string `json:"reason"`
}

// SourceOutcome is everything one source produced in one harvest pass.
type SourceOutcome struct {
	Source    string        `json:"source"`
	Status    SourceStatus  `json:"status"`
	Animals   []Animal      `json:"animals,omitempty"`
	Results   []Result      `json:"results,omitempty"`
	Events    []Event       `json:"events,omitempty"`
	RowErrors []RowError    `json:"row_errors,omitempty"`
	Excluded  []ExcludedRow `json:"excluded,omitempty"`
	Notes     []string      `json:"notes,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Records returns the total record count across kinds for this outcome.
func (o SourceOutcome) Records() int {
	return len(o.Animals) + len(o.Results) + len(o.Events)
}

// SourceError attributes a source-level failure inside an aggregate report.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// IdentitySummary counts identity-resolution actions for one run.
type IdentitySummary struct {
	Created           int `json:"created"`
	Merged            int `json:"merged"`
	LinkedLowConf     int `json:"linked_low_confidence"`
	DistinctAnimals   int `json:"distinct_animals"`
}

// Report is the aggregate outcome of one scheduler run. It is always
// well-formed: a source's hard failure appears in Errors while sibling
// sources' results still appear in Outcomes.
type Report struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Sources    []string           `json:"sources"` // completion order
	Outcomes   []SourceOutcome    `json:"outcomes"`
	Totals     map[RecordKind]int `json:"totals"`
	Errors     []SourceError      `json:"errors,omitempty"`
	Identities []Animal           `json:"identities,omitempty"`
	Identity   IdentitySummary    `json:"identity"`
}

// TotalRecords sums record counts across all kinds.
func (r *Report) TotalRecords() int {
	var n int
	for _, c := range r.Totals {
		n += c
	}
	return n
}
