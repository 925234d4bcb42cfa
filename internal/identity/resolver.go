package identity

import (
	"go.uber.org/zap"

	"github.com/paddock-labs/equinet/internal/model"
)

// Action describes what the resolver did with a candidate.
type Action string

const (
	Created           Action = "created"
	Merged            Action = "merged"
	LinkedLowConf     Action = "linked_low_confidence"
)

// Evidence weights. A matching registry identifier is worth far more than
// name agreement, which federations mangle freely.
const (
	weightRegistryID   = 0.4
	weightNameDOB      = 0.2
	weightNameGeoBreed = 0.15
	mergeThreshold     = 0.6
)

// Resolver accumulates animal identities across sources. It is not safe for
// concurrent use: the scheduler runs it as a single-threaded reduction over
// all per-source output, which also keeps resolution deterministic.
type Resolver struct {
	known []*model.Animal
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve scores the candidate against known identities, in insertion order,
// and either merges it into an existing identity, links it as a new
// low-confidence identity, or creates a fresh one. Given the same inputs and
// known set, the outcome is always the same.
func (r *Resolver) Resolve(candidate model.Animal) (*model.Animal, Action) {
	bestIdx := -1
	bestScore := 0.0
	for i, known := range r.known {
		s := score(candidate, *known)
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestScore >= mergeThreshold && sharesRegistryID(candidate, *r.known[bestIdx]) {
		r.merge(bestIdx, candidate, bestScore)
		return r.known[bestIdx], Merged
	}

	added := r.add(candidate, bestScore)
	if bestScore > 0 {
		zap.L().Debug("identity: low-confidence link",
			zap.String("animal", candidate.Name),
			zap.Float64("score", bestScore),
		)
		return added, LinkedLowConf
	}
	return added, Created
}

// Known returns a snapshot of all resolved identities in creation order.
func (r *Resolver) Known() []model.Animal {
	out := make([]model.Animal, len(r.known))
	for i, a := range r.known {
		out[i] = *a
	}
	return out
}

// score computes the evidence score of candidate against an existing
// identity, capped at 1.0.
func score(candidate, existing model.Animal) float64 {
	var s float64

	for registry, id := range candidate.ExternalIDs {
		if id != "" && existing.ExternalIDs[registry] == id {
			s += weightRegistryID
		}
	}

	sameName := NormalizeName(candidate.Name) != "" &&
		NormalizeName(candidate.Name) == NormalizeName(existing.Name)

	if sameName && candidate.DateOfBirth != "" && candidate.DateOfBirth == existing.DateOfBirth {
		s += weightNameDOB
	}
	if sameName && candidate.Country != "" && candidate.Country == existing.Country &&
		candidate.Breed != "" && candidate.Breed == existing.Breed {
		s += weightNameGeoBreed
	}

	if s > 1.0 {
		s = 1.0
	}
	return s
}

func sharesRegistryID(candidate, existing model.Animal) bool {
	for registry, id := range candidate.ExternalIDs {
		if id != "" && existing.ExternalIDs[registry] == id {
			return true
		}
	}
	return false
}

// merge folds the candidate into known[idx]: identifiers are unioned when
// non-conflicting, empty fields filled, and confidence recomputed as the max
// of the two sides so it never decreases.
func (r *Resolver) merge(idx int, candidate model.Animal, evidence float64) {
	target := r.known[idx]

	for registry, id := range candidate.ExternalIDs {
		if id == "" {
			continue
		}
		if existing, ok := target.ExternalIDs[registry]; ok && existing != id {
			continue // conflicting identifier: keep the first-seen value
		}
		if target.ExternalIDs == nil {
			target.ExternalIDs = make(map[string]string)
		}
		target.ExternalIDs[registry] = id
	}

	fillIfEmpty(&target.Breed, candidate.Breed)
	fillIfEmpty(&target.Country, candidate.Country)
	fillIfEmpty(&target.DateOfBirth, candidate.DateOfBirth)
	fillIfEmpty(&target.Sex, candidate.Sex)
	fillIfEmpty(&target.Color, candidate.Color)
	fillIfEmpty(&target.Sire, candidate.Sire)
	fillIfEmpty(&target.Dam, candidate.Dam)
	if target.HeightCM == 0 {
		target.HeightCM = candidate.HeightCM
	}

	if evidence > target.Confidence {
		target.Confidence = evidence
	}
	if candidate.Confidence > target.Confidence {
		target.Confidence = candidate.Confidence
	}

	for _, src := range candidate.Sources {
		if !contains(target.Sources, src) {
			target.Sources = append(target.Sources, src)
		}
	}
}

func (r *Resolver) add(candidate model.Animal, evidence float64) *model.Animal {
	a := candidate
	if a.ExternalIDs != nil {
		ids := make(map[string]string, len(a.ExternalIDs))
		for k, v := range a.ExternalIDs {
			ids[k] = v
		}
		a.ExternalIDs = ids
	}
	a.Confidence = evidence

	r.known = append(r.known, &a)
	return &a
}

func fillIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
