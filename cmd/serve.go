package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paddock-labs/equinet/internal/model"
	"github.com/paddock-labs/equinet/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the harvest HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/scrape/{source}/{kind}", func(w http.ResponseWriter, req *http.Request) {
		src, err := e.registry.Get(chi.URLParam(req, "source"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, scrapeResponse{Data: []any{}, Error: err.Error()})
			return
		}
		kind, err := model.ParseKind(chi.URLParam(req, "kind"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, scrapeResponse{Data: []any{}, Error: err.Error()})
			return
		}
		if !src.Supplies(kind) {
			writeJSON(w, http.StatusBadRequest, scrapeResponse{
				Data:  []any{},
				Error: fmt.Sprintf("source %s does not supply %s", src.Name, kind),
			})
			return
		}

		outcome := e.orch.Harvest(req.Context(), src, []model.RecordKind{kind})
		resp := newScrapeResponse(outcome, kind)
		status := http.StatusOK
		if outcome.Status == model.SourceHardFailure {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, resp)
	})

	r.Get("/harvest", func(w http.ResponseWriter, req *http.Request) {
		var names []string
		if raw := req.URL.Query().Get("sources"); raw != "" {
			names = strings.Split(raw, ",")
		}
		var kinds []model.RecordKind
		if raw := req.URL.Query().Get("kinds"); raw != "" {
			parsed, err := parseKinds(strings.Split(raw, ","))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			kinds = parsed
		}

		report, err := e.scheduler.Run(req.Context(), names, kinds)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if e.store != nil {
			if err := e.store.RecordRun(req.Context(), report); err != nil {
				zap.L().Error("failed to record run", zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		if e.store == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not configured"})
			return
		}
		runs, err := e.store.ListRuns(req.Context(), store.RunFilter{
			Source: req.URL.Query().Get("source"),
			Limit:  20,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		if e.store == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not configured"})
			return
		}
		report, err := e.store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	return r
}

// scrapeResponse is the wire shape of one scrape call. Data is always a
// JSON array, empty on failure; records are never fabricated.
type scrapeResponse struct {
	Success  bool                `json:"success"`
	Data     []any               `json:"data"`
	Count    int                 `json:"count"`
	Error    string              `json:"error,omitempty"`
	Excluded []model.ExcludedRow `json:"excluded,omitempty"`
}

func newScrapeResponse(outcome model.SourceOutcome, kind model.RecordKind) scrapeResponse {
	resp := scrapeResponse{Data: []any{}, Excluded: outcome.Excluded}

	switch kind {
	case model.KindAnimals:
		for _, a := range outcome.Animals {
			resp.Data = append(resp.Data, a)
		}
	case model.KindResults, model.KindRankings:
		for _, res := range outcome.Results {
			resp.Data = append(resp.Data, res)
		}
	case model.KindEvents:
		for _, ev := range outcome.Events {
			resp.Data = append(resp.Data, ev)
		}
	}
	resp.Count = len(resp.Data)
	resp.Success = outcome.Status != model.SourceHardFailure

	if outcome.Status == model.SourceHardFailure && len(outcome.Notes) > 0 {
		resp.Error = outcome.Notes[0]
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
