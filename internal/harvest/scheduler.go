package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paddock-labs/equinet/internal/identity"
	"github.com/paddock-labs/equinet/internal/model"
	"github.com/paddock-labs/equinet/internal/source"
)

// DefaultMaxConcurrent bounds how many sources harvest at once when the
// caller does not say otherwise.
const DefaultMaxConcurrent = 4

// Scheduler fans harvest passes out across sources with bounded
// concurrency, then reduces the per-source animal candidates into canonical
// identities in a single-threaded post-pass.
type Scheduler struct {
	registry      *source.Registry
	orch          *Orchestrator
	maxConcurrent int
}

// NewScheduler creates a scheduler over the given registry and pass runner.
// maxConcurrent values below one fall back to the default.
func NewScheduler(reg *source.Registry, orch *Orchestrator, maxConcurrent int) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Scheduler{registry: reg, orch: orch, maxConcurrent: maxConcurrent}
}

// Run harvests the named sources (all registered sources when names is
// empty), restricted to the requested kinds (all kinds when empty), and
// returns an aggregate report. Run only errors on selection problems such
// as an unknown source name; per-source failures are isolated into the
// report. Cancellation stops scheduling new sources but the report still
// carries every outcome completed before the cut.
func (s *Scheduler) Run(ctx context.Context, names []string, kinds []model.RecordKind) (*model.Report, error) {
	sources, err := s.registry.Select(names, kinds)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Totals:    make(map[model.RecordKind]int),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("harvest run starting",
		zap.Int("sources", len(sources)),
		zap.Int("max_concurrent", s.maxConcurrent),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, src := range sources {
		src := src
		g.Go(func() error {
			outcome := s.harvestOne(gctx, src, kinds)
			mu.Lock()
			report.Sources = append(report.Sources, src.Name)
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in outcomes

	s.reduceIdentities(report, sources)

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		report.Totals[model.KindAnimals] += len(o.Animals)
		report.Totals[model.KindResults] += len(o.Results)
		report.Totals[model.KindEvents] += len(o.Events)
		if o.Status == model.SourceHardFailure {
			msg := "no data retrieved"
			if len(o.Notes) > 0 {
				msg = o.Notes[0]
			}
			report.Errors = append(report.Errors, model.SourceError{Source: o.Source, Message: msg})
		}
	}

	report.Elapsed = time.Since(report.StartedAt)
	log.Info("harvest run complete",
		zap.Int("records", report.TotalRecords()),
		zap.Int("failures", len(report.Errors)),
		zap.Int("identities", report.Identity.DistinctAnimals),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// harvestOne wraps a single pass with panic recovery so a panicking source
// degrades to a hard failure instead of taking down the run.
func (s *Scheduler) harvestOne(ctx context.Context, src source.Descriptor, kinds []model.RecordKind) (outcome model.SourceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("harvest pass panicked",
				zap.String("source", src.Name), zap.Any("panic", r))
			outcome = model.SourceOutcome{
				Source: src.Name,
				Status: model.SourceHardFailure,
				Notes:  []string{fmt.Sprintf("panic: %v", r)},
			}
		}
	}()
	return s.orch.Harvest(ctx, src, kinds)
}

// reduceIdentities resolves every animal candidate against the shared
// identity set. Outcomes land in completion order, so the reduction walks
// sources in their selection order to keep identity resolution
// deterministic across runs.
func (s *Scheduler) reduceIdentities(report *model.Report, sources []source.Descriptor) {
	byName := make(map[string]*model.SourceOutcome, len(report.Outcomes))
	for i := range report.Outcomes {
		byName[report.Outcomes[i].Source] = &report.Outcomes[i]
	}

	resolver := identity.NewResolver()
	for _, src := range sources {
		outcome, ok := byName[src.Name]
		if !ok {
			continue
		}
		for _, animal := range outcome.Animals {
			_, action := resolver.Resolve(animal)
			switch action {
			case identity.Created:
				report.Identity.Created++
			case identity.Merged:
				report.Identity.Merged++
			case identity.LinkedLowConf:
				report.Identity.LinkedLowConf++
			}
		}
	}

	report.Identities = resolver.Known()
	report.Identity.DistinctAnimals = len(report.Identities)
}
