package model

// ResultStatus is the closed set of competition outcomes.
type ResultStatus string

const (
	StatusPlaced      ResultStatus = "placed"
	StatusDidNotPlace ResultStatus = "did_not_place"
	StatusRetired     ResultStatus = "retired"
	StatusEliminated  ResultStatus = "eliminated"
	StatusWithdrawn   ResultStatus = "withdrawn"
)

// Result is one competition placing. RawStatus preserves the source's
// original untranslated status string alongside the enum; the translation
// never discards the original value. Pre-start withdrawals are never
// represented as a Result — they are excluded at normalization time.
type Result struct {
	Animal      string       `json:"animal"`
	Class       string       `json:"class,omitempty"`
	Placing     int          `json:"placing,omitempty"` // 0 = no placing
	Status      ResultStatus `json:"status"`
	RawStatus   string       `json:"raw_status"`
	Faults      int          `json:"faults,omitempty"`
	TimeSeconds float64      `json:"time_seconds,omitempty"`
	EarningsUSD float64      `json:"earnings_usd,omitempty"`
	Country     string       `json:"country,omitempty"`
	Source      string       `json:"source"`
}

// Event is one competition fixture.
type Event struct {
	Name       string `json:"name"`
	Venue      string `json:"venue,omitempty"`
	Location   string `json:"location,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // ISO date or empty
	Federation string `json:"federation"`
}
