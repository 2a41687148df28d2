package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvonlanthen/registry-radar/internal/config"
	"github.com/mvonlanthen/registry-radar/internal/elasticsearch"
	"github.com/mvonlanthen/registry-radar/internal/logger"
	"github.com/mvonlanthen/registry-radar/internal/metrics"
	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/registry"
	"github.com/mvonlanthen/registry-radar/internal/search"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	apiClient := registry.NewAPIClient(cfg.ZefixBaseURL, cfg.ZefixUser, cfg.ZefixPassword, log)
	provider := search.New(cfg.SearchBaseURL, cfg.SearchAPIKey, log)
	fallback := registry.NewFallbackClient(provider, log)
	verifier := registry.NewAgeVerifier(apiClient, cfg.RecencyMonths, log)
	orch := registry.NewOrchestrator(apiClient, fallback, verifier, m, log)

	srv := &server{log: log, cfg: cfg, es: esClient, orch: orch}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/companies/search", srv.handleCompanySearch)
	r.Get("/publications", srv.handlePublications)
	r.Get("/signals", srv.handleSignals)
	r.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log  *slog.Logger
	cfg  *config.API
	es   *elasticsearch.Client
	orch *registry.Orchestrator
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.es.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCompanySearch runs a live name search against the registry, with
// transparent degradation to the search-derived source.
func (s *server) handleCompanySearch(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	query := models.CompanyQuery{
		Name:       name,
		Region:     strings.TrimSpace(r.URL.Query().Get("region")),
		ActiveOnly: parseBool(r.URL.Query().Get("active_only"), true),
		MaxEntries: clampInt(r.URL.Query().Get("max_entries"), 20, 50),
	}

	result, err := s.orch.SearchCompany(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePublications runs a live date-range discovery. Long ranges are
// clamped by the orchestrator depending on the active source.
func (s *server) handlePublications(w http.ResponseWriter, r *http.Request) {
	start, okStart := parseDate(r.URL.Query().Get("start"))
	end, okEnd := parseDate(r.URL.Query().Get("end"))
	if !okStart || !okEnd {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start and end must be YYYY-MM-DD"})
		return
	}

	query := models.DateRangeQuery{
		Start:   start,
		End:     end,
		NewOnly: parseBool(r.URL.Query().Get("new_only"), true),
		Region:  strings.TrimSpace(r.URL.Query().Get("region")),
	}

	result, err := s.orch.DateRange(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSignals serves stored discoveries from the signal index.
func (s *server) handleSignals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	params := elasticsearch.SignalParams{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Canton: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("canton"))),
		UID:    strings.TrimSpace(r.URL.Query().Get("uid")),
		Source: strings.TrimSpace(r.URL.Query().Get("source")),
		From:   clampInt(r.URL.Query().Get("from"), 0, 10_000),
		Size:   clampInt(r.URL.Query().Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
	}
	if start, ok := parseDate(r.URL.Query().Get("start")); ok {
		params.Start = &start
	}
	if end, ok := parseDate(r.URL.Query().Get("end")); ok {
		params.End = &end
	}

	result, err := s.es.SearchSignals(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func parseBool(raw string, fallback bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
