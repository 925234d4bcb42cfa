package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddock-labs/equinet/internal/cache"
	"github.com/paddock-labs/equinet/internal/extract"
	"github.com/paddock-labs/equinet/internal/fetch"
	"github.com/paddock-labs/equinet/internal/model"
	"github.com/paddock-labs/equinet/internal/resilience"
	"github.com/paddock-labs/equinet/internal/source"
)

const resultsPage = `<html><body>
<table class="results">
  <tr class="row">
    <td class="horse">Thunder</td>
    <td class="class">Grand Prix</td>
    <td class="placing">1st</td>
    <td class="status">1st Place</td>
    <td class="nation">FRA</td>
    <td class="prize">$15,000</td>
  </tr>
  <tr class="row">
    <td class="horse">Ghost</td>
    <td class="class">Grand Prix</td>
    <td class="placing"></td>
    <td class="status">WD</td>
    <td class="nation">USA</td>
    <td class="prize"></td>
  </tr>
</table>
</body></html>`

const animalsPage = `<html><body>
<div class="pedigree">
  <div class="horse-card" data-reg="FEI10012345">
    <span class="name">Celeste d'Argent</span>
    <span class="breed">Selle Francais</span>
    <span class="dob">2012-05-20</span>
    <span class="nation">France</span>
  </div>
</div>
</body></html>`

func resultsPlan(sourceName string) *extract.Plan {
	p := &extract.Plan{
		Source: sourceName,
		Kinds: map[model.RecordKind]*extract.KindPlan{
			model.KindResults: {
				Path:         "/results",
				RowSelectors: []string{"table.results tr.row"},
				Fields: []extract.FieldRule{
					{Name: extract.FieldAnimal, Selector: "td.horse"},
					{Name: extract.FieldClass, Selector: "td.class"},
					{Name: extract.FieldPlacing, Selector: "td.placing", Pattern: `(\d+)`},
					{Name: extract.FieldStatus, Selector: "td.status"},
					{Name: extract.FieldCountry, Selector: "td.nation"},
					{Name: extract.FieldEarnings, Selector: "td.prize"},
				},
			},
		},
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func animalsPlan(sourceName string) *extract.Plan {
	p := &extract.Plan{
		Source: sourceName,
		Kinds: map[model.RecordKind]*extract.KindPlan{
			model.KindAnimals: {
				Path:         "/pedigree",
				RowSelectors: []string{"div.horse-card"},
				Fields: []extract.FieldRule{
					{Name: extract.FieldName, Selector: "span.name"},
					{Name: extract.FieldBreed, Selector: "span.breed"},
					{Name: extract.FieldDOB, Selector: "span.dob"},
					{Name: extract.FieldCountry, Selector: "span.nation"},
					{Name: extract.FieldRegID, Attr: "data-reg"},
				},
			},
		},
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		Attempts:  2,
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
		OnRetry:   func(int, error) {},
	}
}

func resultsSource(name, endpoint string) source.Descriptor {
	return source.Descriptor{
		Name:      name,
		Endpoints: []string{endpoint},
		Timeout:   2 * time.Second,
		Kinds:     []model.RecordKind{model.KindResults},
		CacheTTL:  time.Minute,
	}
}

func newOrchestrator(plans map[string]*extract.Plan) *Orchestrator {
	f := fetch.NewHTTPFetcher(fetch.Options{Retry: fastRetry()})
	return NewOrchestrator(f, cache.New(16), plans)
}

func TestHarvest_NormalizesAndExcludesWithdrawals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	orch := newOrchestrator(map[string]*extract.Plan{"fei": resultsPlan("fei")})
	outcome := orch.Harvest(context.Background(), resultsSource("fei", srv.URL), nil)

	assert.Equal(t, model.SourceSuccess, outcome.Status)
	require.Len(t, outcome.Results, 1)
	got := outcome.Results[0]
	assert.Equal(t, "Thunder", got.Animal)
	assert.Equal(t, 1, got.Placing)
	assert.Equal(t, model.StatusPlaced, got.Status)
	assert.Equal(t, "1st Place", got.RawStatus)
	assert.Equal(t, "FRA", got.Country)
	assert.Equal(t, 15000.0, got.EarningsUSD)
	assert.Equal(t, "fei", got.Source)

	require.Len(t, outcome.Excluded, 1)
	assert.Equal(t, "Ghost", outcome.Excluded[0].Animal)
	assert.Equal(t, "WD", outcome.Excluded[0].RawStatus)
	assert.Empty(t, outcome.RowErrors)
}

func TestHarvest_SkipsAuthenticatedSource(t *testing.T) {
	orch := newOrchestrator(map[string]*extract.Plan{"vault": resultsPlan("vault")})
	src := resultsSource("vault", "https://vault.invalid")
	src.RequiresAuth = true

	outcome := orch.Harvest(context.Background(), src, nil)
	assert.Equal(t, model.SourceSkipped, outcome.Status)
	assert.Zero(t, outcome.Records())
	require.NotEmpty(t, outcome.Notes)
	assert.Contains(t, outcome.Notes[0], "authentication")
}

func TestHarvest_HardFailureWhenNothingFetched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	orch := newOrchestrator(map[string]*extract.Plan{"fei": resultsPlan("fei")})
	outcome := orch.Harvest(context.Background(), resultsSource("fei", srv.URL), nil)

	assert.Equal(t, model.SourceHardFailure, outcome.Status)
	assert.Zero(t, outcome.Records())
	require.NotEmpty(t, outcome.Notes)
	assert.Contains(t, outcome.Notes[0], "results")
}

func TestHarvest_SecondPassServedFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	orch := newOrchestrator(map[string]*extract.Plan{"fei": resultsPlan("fei")})
	src := resultsSource("fei", srv.URL)

	first := orch.Harvest(context.Background(), src, nil)
	second := orch.Harvest(context.Background(), src, nil)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first.Results, second.Results)
}

func TestHarvest_RowErrorDoesNotFailSource(t *testing.T) {
	page := `<html><body><table class="results">
	<tr class="row"><td class="horse">Thunder</td><td class="status">1st</td></tr>
	<tr class="row"><td class="horse"></td><td class="status">2nd</td></tr>
	</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	orch := newOrchestrator(map[string]*extract.Plan{"fei": resultsPlan("fei")})
	outcome := orch.Harvest(context.Background(), resultsSource("fei", srv.URL), nil)

	assert.Equal(t, model.SourcePartialFailure, outcome.Status)
	require.Len(t, outcome.Results, 1)
	require.Len(t, outcome.RowErrors, 1)
	assert.Equal(t, 1, outcome.RowErrors[0].Row)
	assert.Contains(t, outcome.RowErrors[0].Message, "animal")
}

func TestScheduler_FailureIsolation(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	reg := source.NewEmptyRegistry()
	reg.Register(resultsSource("fei", good.URL))
	reg.Register(resultsSource("usef", bad.URL))
	reg.Register(resultsSource("ecf", good.URL))

	plans := map[string]*extract.Plan{
		"fei":  resultsPlan("fei"),
		"usef": resultsPlan("usef"),
		"ecf":  resultsPlan("ecf"),
	}
	sched := NewScheduler(reg, newOrchestrator(plans), 2)

	report, err := sched.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	statuses := map[string]model.SourceStatus{}
	for _, o := range report.Outcomes {
		statuses[o.Source] = o.Status
	}
	assert.Equal(t, model.SourceSuccess, statuses["fei"])
	assert.Equal(t, model.SourceHardFailure, statuses["usef"])
	assert.Equal(t, model.SourceSuccess, statuses["ecf"])

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "usef", report.Errors[0].Source)
	assert.Equal(t, 2, report.Totals[model.KindResults])
	assert.NotEmpty(t, report.RunID)
}

func TestScheduler_IdentityReduction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(animalsPage))
	}))
	defer srv.Close()

	reg := source.NewEmptyRegistry()
	for _, name := range []string{"allbreed", "horsetelex"} {
		reg.Register(source.Descriptor{
			Name:      name,
			Endpoints: []string{srv.URL},
			Timeout:   2 * time.Second,
			Kinds:     []model.RecordKind{model.KindAnimals},
		})
	}

	plans := map[string]*extract.Plan{
		"allbreed":   animalsPlan("allbreed"),
		"horsetelex": animalsPlan("horsetelex"),
	}
	sched := NewScheduler(reg, newOrchestrator(plans), 2)

	report, err := sched.Run(context.Background(), nil, []model.RecordKind{model.KindAnimals})
	require.NoError(t, err)

	// Both sources see the same horse but register it under their own name,
	// so no registry identifier is shared and no merge happens. Name, date
	// of birth, and country still link the pair at low confidence.
	assert.Equal(t, 2, report.Identity.DistinctAnimals)
	assert.Equal(t, 1, report.Identity.Created)
	assert.Equal(t, 1, report.Identity.LinkedLowConf)
	require.Len(t, report.Identities, 2)
	assert.Equal(t, "Celeste d'Argent", report.Identities[0].Name)
}

func TestScheduler_UnknownSourceName(t *testing.T) {
	reg := source.NewEmptyRegistry()
	sched := NewScheduler(reg, newOrchestrator(nil), 1)

	_, err := sched.Run(context.Background(), []string{"nope"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

type panickyFetcher struct{}

func (panickyFetcher) Fetch(context.Context, source.Descriptor, fetch.Request) ([]byte, error) {
	panic("boom")
}

func TestScheduler_RecoversPanickingSource(t *testing.T) {
	reg := source.NewEmptyRegistry()
	reg.Register(resultsSource("fei", "https://fei.invalid"))

	orch := NewOrchestrator(panickyFetcher{}, cache.New(4), map[string]*extract.Plan{"fei": resultsPlan("fei")})
	sched := NewScheduler(reg, orch, 1)

	report, err := sched.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, model.SourceHardFailure, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Notes[0], "panic")
}

func TestScheduler_CancelledContextStillReports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := source.NewEmptyRegistry()
	reg.Register(resultsSource("fei", "https://fei.invalid"))
	sched := NewScheduler(reg, newOrchestrator(map[string]*extract.Plan{"fei": resultsPlan("fei")}), 1)

	report, err := sched.Run(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, model.SourceHardFailure, report.Outcomes[0].Status)
}