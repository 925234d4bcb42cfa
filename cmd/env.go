package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/paddock-labs/equinet/internal/cache"
	"github.com/paddock-labs/equinet/internal/extract"
	"github.com/paddock-labs/equinet/internal/fetch"
	"github.com/paddock-labs/equinet/internal/harvest"
	"github.com/paddock-labs/equinet/internal/ratelimit"
	"github.com/paddock-labs/equinet/internal/resilience"
	"github.com/paddock-labs/equinet/internal/source"
	"github.com/paddock-labs/equinet/internal/store"
)

// env bundles the wired harvester components shared by the harvest, scrape,
// and serve commands.
type env struct {
	registry  *source.Registry
	scheduler *harvest.Scheduler
	orch      *harvest.Orchestrator
	store     store.Store
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// initEnv builds the full harvester from configuration: source registry,
// extraction plans (builtin plus optional overrides), rate-limit window,
// fetch engine, response cache, orchestrator, and scheduler.
func initEnv(ctx context.Context) (*env, error) {
	reg := source.NewRegistry()

	plans := extract.BuiltinPlans()
	if cfg.Plans.Path != "" {
		loaded, err := extract.LoadPlans(cfg.Plans.Path)
		if err != nil {
			return nil, eris.Wrap(err, "load extraction plans")
		}
		plans = loaded
	}

	budgets := make(map[string]int)
	for _, d := range reg.All() {
		budgets[d.Name] = d.RateLimit
	}
	window := ratelimit.NewWindow(budgets,
		ratelimit.WithSpan(time.Duration(cfg.Fetch.WindowSpanSecs)*time.Second))

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		UserAgent: cfg.Fetch.UserAgent,
		Window:    window,
		Retry: resilience.RetryConfig{
			Attempts:  cfg.Fetch.RetryAttempts,
			BaseDelay: time.Duration(cfg.Fetch.RetryBaseMs) * time.Millisecond,
			MaxDelay:  time.Duration(cfg.Fetch.RetryMaxMs) * time.Millisecond,
		},
	})

	orch := harvest.NewOrchestrator(fetcher, cache.New(cfg.Cache.MaxEntries), plans)
	sched := harvest.NewScheduler(reg, orch, cfg.Harvest.MaxConcurrent)

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	return &env{
		registry:  reg,
		scheduler: sched,
		orch:      orch,
		store:     st,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
