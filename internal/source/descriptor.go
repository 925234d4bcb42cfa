// Package source holds the static configuration for every external
// integration the harvester knows how to talk to.
package source

import (
	"time"

	"github.com/paddock-labs/equinet/internal/model"
)

// Descriptor is the static configuration for one integration. Descriptors
// are immutable after process start; endpoints are listed in priority order
// and form the fallback chain for every logical request.
type Descriptor struct {
	Name         string
	Endpoints    []string // priority order; later entries are fallbacks
	RateLimit    int      // requests per minute
	Timeout      time.Duration
	Headers      map[string]string
	Kinds        []model.RecordKind
	RequiresAuth bool // authenticated sources are registered but skipped
	CacheTTL     time.Duration
}

// Supplies reports whether the source provides the given record kind.
func (d Descriptor) Supplies(kind model.RecordKind) bool {
	for _, k := range d.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// builtins returns the descriptors for every integration shipped with the
// binary. Endpoint mirrors reflect each federation's known alternates.
func builtins() []Descriptor {
	return []Descriptor{
		{
			Name: "fei",
			Endpoints: []string{
				"https://data.fei.org",
				"https://results.fei.org",
			},
			RateLimit: 20,
			Timeout:   15 * time.Second,
			Headers:   map[string]string{"Accept-Language": "en"},
			Kinds:     []model.RecordKind{model.KindResults, model.KindRankings, model.KindEvents},
			CacheTTL:  30 * time.Minute,
		},
		{
			Name:      "usef",
			Endpoints: []string{"https://www.usef.org"},
			RateLimit: 12,
			Timeout:   20 * time.Second,
			Kinds:     []model.RecordKind{model.KindResults, model.KindEvents},
			CacheTTL:  30 * time.Minute,
		},
		{
			Name: "allbreed",
			Endpoints: []string{
				"https://www.allbreedpedigree.com",
			},
			RateLimit: 6,
			Timeout:   20 * time.Second,
			Kinds:     []model.RecordKind{model.KindAnimals},
			CacheTTL:  6 * time.Hour,
		},
		{
			Name: "horsetelex",
			Endpoints: []string{
				"https://www.horsetelex.com",
				"https://www.horsetelex.nl",
			},
			RateLimit: 10,
			Timeout:   15 * time.Second,
			Kinds:     []model.RecordKind{model.KindAnimals},
			CacheTTL:  6 * time.Hour,
		},
		{
			Name:         "stallion-registry",
			Endpoints:    []string{"https://registry.example.org"},
			RateLimit:    10,
			Timeout:      15 * time.Second,
			Kinds:        []model.RecordKind{model.KindAnimals},
			RequiresAuth: true,
			CacheTTL:     6 * time.Hour,
		},
	}
}
