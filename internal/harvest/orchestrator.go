// Package harvest drives the per-source harvest pass and the concurrent
// scheduler that fans passes out across sources. One source's failure never
// fails a sibling: every failure mode lands in that source's outcome.
package harvest

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paddock-labs/equinet/internal/cache"
	"github.com/paddock-labs/equinet/internal/extract"
	"github.com/paddock-labs/equinet/internal/fetch"
	"github.com/paddock-labs/equinet/internal/model"
	"github.com/paddock-labs/equinet/internal/normalize"
	"github.com/paddock-labs/equinet/internal/source"
)

// phase tracks where a harvest pass is in its lifecycle. Used for logging
// and for attributing failures to the stage that produced them.
type phase string

const (
	phaseIdle        phase = "idle"
	phaseFetching    phase = "fetching"
	phaseExtracting  phase = "extracting"
	phaseNormalizing phase = "normalizing"
	phaseDone        phase = "done"
)

// Orchestrator runs the fetch-extract-normalize pass for one source. It is
// stateless between calls and safe for concurrent use as long as the
// underlying fetcher and cache are.
type Orchestrator struct {
	fetcher fetch.Fetcher
	cache   *cache.Cache
	plans   map[string]*extract.Plan
	now     func() time.Time
}

// NewOrchestrator wires the fetch engine, response cache, and extraction
// plans into a harvest pass runner.
func NewOrchestrator(f fetch.Fetcher, c *cache.Cache, plans map[string]*extract.Plan) *Orchestrator {
	return &Orchestrator{
		fetcher: f,
		cache:   c,
		plans:   plans,
		now:     time.Now,
	}
}

// Harvest runs one full pass over the source for the requested kinds and
// returns its outcome. The outcome always describes what happened, even on
// hard failure; Harvest itself only errors on a nil descriptor plan.
//
// Failure grading: a source is a hard failure only when no kind produced a
// page body at all. Any usable body downgrades fetch failures on sibling
// kinds, and row-level normalization errors, to a partial failure.
func (o *Orchestrator) Harvest(ctx context.Context, src source.Descriptor, kinds []model.RecordKind) model.SourceOutcome {
	start := o.now()
	log := zap.L().With(zap.String("source", src.Name))
	outcome := model.SourceOutcome{Source: src.Name}

	if src.RequiresAuth {
		log.Info("skipping authenticated source")
		outcome.Status = model.SourceSkipped
		outcome.Notes = append(outcome.Notes, "requires authentication; no credentials configured")
		outcome.Elapsed = o.now().Sub(start)
		return outcome
	}

	plan := o.plans[src.Name]
	if plan == nil {
		outcome.Status = model.SourceHardFailure
		outcome.Notes = append(outcome.Notes, "no extraction plan registered")
		outcome.Elapsed = o.now().Sub(start)
		return outcome
	}

	var fetched, failed int
	for _, kind := range o.selectKinds(src, kinds) {
		kp := plan.ForKind(kind)
		if kp == nil {
			continue
		}

		body, err := o.fetchPage(ctx, src, kind, kp)
		if err != nil {
			failed++
			log.Warn("kind unavailable", zap.String("kind", string(kind)),
				zap.String("phase", string(phaseFetching)), zap.Error(err))
			outcome.Notes = append(outcome.Notes, string(kind)+": "+err.Error())
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fetched++

		records, err := extract.Extract(plan, kind, body, o.now())
		if err != nil {
			failed++
			log.Warn("extraction failed", zap.String("kind", string(kind)),
				zap.String("phase", string(phaseExtracting)), zap.Error(err))
			outcome.Notes = append(outcome.Notes, string(kind)+": "+err.Error())
			continue
		}

		o.normalizeRecords(&outcome, kind, records)
	}

	switch {
	case fetched == 0:
		outcome.Status = model.SourceHardFailure
	case failed > 0 || len(outcome.RowErrors) > 0:
		outcome.Status = model.SourcePartialFailure
	default:
		outcome.Status = model.SourceSuccess
	}

	outcome.Elapsed = o.now().Sub(start)
	log.Info("harvest pass complete",
		zap.String("phase", string(phaseDone)),
		zap.String("status", string(outcome.Status)),
		zap.Int("records", outcome.Records()),
		zap.Int("row_errors", len(outcome.RowErrors)),
		zap.Int("excluded", len(outcome.Excluded)),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

// selectKinds intersects the source's supplied kinds with the requested
// ones, preserving the source's declared order. Empty request means all.
func (o *Orchestrator) selectKinds(src source.Descriptor, kinds []model.RecordKind) []model.RecordKind {
	if len(kinds) == 0 {
		return src.Kinds
	}
	var out []model.RecordKind
	for _, k := range src.Kinds {
		for _, want := range kinds {
			if k == want {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// fetchPage returns the page body for one kind, consulting the response
// cache first. Fresh bodies are cached under the source's TTL.
func (o *Orchestrator) fetchPage(ctx context.Context, src source.Descriptor, kind model.RecordKind, kp *extract.KindPlan) ([]byte, error) {
	key := cache.Key(src.Name, string(kind), nil)
	if o.cache != nil {
		if body, ok := o.cache.Get(key); ok {
			zap.L().Debug("cache hit", zap.String("source", src.Name), zap.String("kind", string(kind)))
			return body, nil
		}
	}

	body, err := o.fetcher.Fetch(ctx, src, fetch.Request{Path: kp.Path, Params: url.Values{}})
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.Set(key, body, src.CacheTTL)
	}
	return body, nil
}

// normalizeRecords translates raw records of one kind into typed output on
// the outcome. Rows that cannot be normalized become RowErrors and are
// dropped; pre-start withdrawals land in the excluded side channel.
func (o *Orchestrator) normalizeRecords(outcome *model.SourceOutcome, kind model.RecordKind, records []model.RawRecord) {
	for i, rec := range records {
		switch kind {
		case model.KindAnimals:
			animal, err := buildAnimal(rec)
			if err != nil {
				outcome.RowErrors = append(outcome.RowErrors, model.RowError{Row: i, Message: err.Error()})
				continue
			}
			outcome.Animals = append(outcome.Animals, animal)
		case model.KindResults, model.KindRankings:
			result, excluded, err := buildResult(rec)
			if err != nil {
				outcome.RowErrors = append(outcome.RowErrors, model.RowError{Row: i, Message: err.Error()})
				continue
			}
			if excluded != nil {
				excluded.Row = i
				outcome.Excluded = append(outcome.Excluded, *excluded)
				continue
			}
			outcome.Results = append(outcome.Results, result)
		case model.KindEvents:
			event, err := buildEvent(rec)
			if err != nil {
				outcome.RowErrors = append(outcome.RowErrors, model.RowError{Row: i, Message: err.Error()})
				continue
			}
			outcome.Events = append(outcome.Events, event)
		}
	}
}

// buildAnimal normalizes one animal row. The name is the only required
// field; everything else degrades to its zero value.
func buildAnimal(rec model.RawRecord) (model.Animal, error) {
	name := strings.TrimSpace(rec.Field(extract.FieldName))
	if name == "" {
		return model.Animal{}, errMissingField(extract.FieldName)
	}

	animal := model.Animal{
		Name:        name,
		Breed:       strings.TrimSpace(rec.Field(extract.FieldBreed)),
		Country:     normalize.Country(rec.Field(extract.FieldCountry)),
		DateOfBirth: normalize.Date(rec.Field(extract.FieldDOB)),
		Sex:         strings.ToLower(strings.TrimSpace(rec.Field(extract.FieldSex))),
		HeightCM:    normalize.ParseHeight(rec.Field(extract.FieldHeight)),
		Color:       strings.TrimSpace(rec.Field(extract.FieldColor)),
		Sire:        strings.TrimSpace(rec.Field(extract.FieldSire)),
		Dam:         strings.TrimSpace(rec.Field(extract.FieldDam)),
		Sources:     []string{rec.Source},
	}
	if id := strings.TrimSpace(rec.Field(extract.FieldRegID)); id != "" {
		animal.ExternalIDs = map[string]string{rec.Source: id}
	}
	return animal, nil
}

// buildResult normalizes one result or ranking row. A withdrawn status
// returns a non-nil ExcludedRow instead of a Result: withdrawals before the
// start are audit data, never competition outcomes.
func buildResult(rec model.RawRecord) (model.Result, *model.ExcludedRow, error) {
	animal := strings.TrimSpace(rec.Field(extract.FieldAnimal))
	if animal == "" {
		return model.Result{}, nil, errMissingField(extract.FieldAnimal)
	}

	placing := normalize.Placing(rec.Field(extract.FieldPlacing))
	rawStatus := strings.TrimSpace(rec.Field(extract.FieldStatus))
	status, excluded := normalize.Status(rawStatus, placing > 0)
	if excluded {
		return model.Result{}, &model.ExcludedRow{
			Animal:    animal,
			RawStatus: rawStatus,
			Reason:    "withdrawn before start",
		}, nil
	}

	return model.Result{
		Animal:      animal,
		Class:       strings.TrimSpace(rec.Field(extract.FieldClass)),
		Placing:     placing,
		Status:      status,
		RawStatus:   rawStatus,
		Faults:      normalize.Faults(rec.Field(extract.FieldFaults)),
		TimeSeconds: normalize.Seconds(rec.Field(extract.FieldTime)),
		EarningsUSD: normalize.Earnings(rec.Field(extract.FieldEarnings)),
		Country:     normalize.Country(rec.Field(extract.FieldCountry)),
		Source:      rec.Source,
	}, nil, nil
}

// buildEvent normalizes one event row.
func buildEvent(rec model.RawRecord) (model.Event, error) {
	name := strings.TrimSpace(rec.Field(extract.FieldName))
	if name == "" {
		return model.Event{}, errMissingField(extract.FieldName)
	}
	return model.Event{
		Name:       name,
		Venue:      strings.TrimSpace(rec.Field(extract.FieldVenue)),
		Location:   strings.TrimSpace(rec.Field(extract.FieldLocation)),
		StartDate:  normalize.Date(rec.Field(extract.FieldDate)),
		Federation: rec.Source,
	}, nil
}

type missingFieldError struct{ field string }

func (e missingFieldError) Error() string { return "missing required field " + e.field }

func errMissingField(field string) error { return missingFieldError{field: field} }
