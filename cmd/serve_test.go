package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddock-labs/equinet/internal/cache"
	"github.com/paddock-labs/equinet/internal/extract"
	"github.com/paddock-labs/equinet/internal/fetch"
	"github.com/paddock-labs/equinet/internal/harvest"
	"github.com/paddock-labs/equinet/internal/model"
	"github.com/paddock-labs/equinet/internal/resilience"
	"github.com/paddock-labs/equinet/internal/source"
	"github.com/paddock-labs/equinet/internal/store"
)

const testResultsPage = `<html><body>
<table class="results">
  <tr class="row">
    <td class="horse">Thunder</td>
    <td class="placing">1</td>
    <td class="status">1st Place</td>
  </tr>
</table>
</body></html>`

func testEnv(t *testing.T, endpoint string) *env {
	t.Helper()

	plan := &extract.Plan{
		Source: "fei",
		Kinds: map[model.RecordKind]*extract.KindPlan{
			model.KindResults: {
				Path:         "/results",
				RowSelectors: []string{"table.results tr.row"},
				Fields: []extract.FieldRule{
					{Name: extract.FieldAnimal, Selector: "td.horse"},
					{Name: extract.FieldPlacing, Selector: "td.placing"},
					{Name: extract.FieldStatus, Selector: "td.status"},
				},
			},
		},
	}
	require.NoError(t, plan.Validate())

	reg := source.NewEmptyRegistry()
	reg.Register(source.Descriptor{
		Name:      "fei",
		Endpoints: []string{endpoint},
		Timeout:   2 * time.Second,
		Kinds:     []model.RecordKind{model.KindResults},
	})

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Retry: resilience.RetryConfig{
			Attempts:  1,
			BaseDelay: time.Millisecond,
			OnRetry:   func(int, error) {},
		},
	})
	orch := harvest.NewOrchestrator(fetcher, cache.New(16), map[string]*extract.Plan{"fei": plan})

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	return &env{
		registry:  reg,
		scheduler: harvest.NewScheduler(reg, orch, 2),
		orch:      orch,
		store:     st,
	}
}

func TestServeHealth(t *testing.T) {
	router := newRouter(testEnv(t, "https://fei.invalid"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeScrape(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testResultsPage))
	}))
	defer upstream.Close()

	router := newRouter(testEnv(t, upstream.URL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape/fei/results", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool           `json:"success"`
		Data    []model.Result `json:"data"`
		Count   int            `json:"count"`
		Error   string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Thunder", resp.Data[0].Animal)
	assert.Empty(t, resp.Error)
}

func TestServeScrapeUnknownSource(t *testing.T) {
	router := newRouter(testEnv(t, "https://fei.invalid"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape/nope/results", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeScrapeUnsuppliedKind(t *testing.T) {
	router := newRouter(testEnv(t, "https://fei.invalid"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape/fei/animals", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not supply")
}

func TestServeScrapeUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	router := newRouter(testEnv(t, upstream.URL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scrape/fei/results", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Failures carry an empty data array, never null or fabricated rows.
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "[]", string(resp.Data))
	assert.NotEmpty(t, resp.Error)
}

func TestServeHarvestRecordsRun(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testResultsPage))
	}))
	defer upstream.Close()

	e := testEnv(t, upstream.URL)
	router := newRouter(e)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/harvest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Totals[model.KindResults])

	// The run is persisted and retrievable.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+report.RunID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
}

func TestServeHarvestUnknownSourceParam(t *testing.T) {
	router := newRouter(testEnv(t, "https://fei.invalid"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/harvest?sources=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
