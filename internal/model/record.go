package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// RecordKind identifies the category of data a source supplies.
type RecordKind string

const (
	KindAnimals  RecordKind = "animals"
	KindResults  RecordKind = "results"
	KindEvents   RecordKind = "events"
	KindRankings RecordKind = "rankings"
)

// ParseKind converts a string into a RecordKind.
func ParseKind(s string) (RecordKind, error) {
	switch RecordKind(s) {
	case KindAnimals, KindResults, KindEvents, KindRankings:
		return RecordKind(s), nil
	default:
		return "", eris.Errorf("model: unknown record kind %q (valid: animals, results, events, rankings)", s)
	}
}

// AllKinds returns every record kind in a fixed order.
func AllKinds() []RecordKind {
	return []RecordKind{KindAnimals, KindResults, KindEvents, KindRankings}
}

// RawRecord is one row extracted from a fetched page: a mapping of canonical
// field names to raw text, tagged with its origin. Produced by the extractor,
// consumed once by normalization, never persisted.
type RawRecord struct {
	Source    string
	Kind      RecordKind
	FetchedAt time.Time
	Fields    map[string]string
}

// Field returns the raw text for a field name, or "" when absent.
func (r RawRecord) Field(name string) string {
	return r.Fields[name]
}
