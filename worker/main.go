package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/mvonlanthen/registry-radar/internal/config"
	"github.com/mvonlanthen/registry-radar/internal/dedupe"
	"github.com/mvonlanthen/registry-radar/internal/elasticsearch"
	"github.com/mvonlanthen/registry-radar/internal/logger"
	"github.com/mvonlanthen/registry-radar/internal/metrics"
	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/processing"
	"github.com/mvonlanthen/registry-radar/internal/registry"
	"github.com/mvonlanthen/registry-radar/internal/search"
)

type signalIndexer interface {
	IndexSignal(ctx context.Context, doc models.SignalDocument) error
}

type signalPublisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		MaxAttempts: 3,
	})
	defer writer.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", slog.Any("err", err))
		}
	}()

	orch := buildOrchestrator(cfg.Registry, m, log)

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.Duration("interval", cfg.Interval),
		slog.Int("lookback_days", cfg.LookbackDays),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runDiscovery(ctx, log, orch, esClient, writer, cache, cfg, m)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runDiscovery(ctx, log, orch, esClient, writer, cache, cfg, m)
		}
	}
}

func buildOrchestrator(cfg config.Registry, m *metrics.Metrics, log *slog.Logger) *registry.Orchestrator {
	api := registry.NewAPIClient(cfg.ZefixBaseURL, cfg.ZefixUser, cfg.ZefixPassword, log)
	provider := search.New(cfg.SearchBaseURL, cfg.SearchAPIKey, log)
	fallback := registry.NewFallbackClient(provider, log)
	verifier := registry.NewAgeVerifier(api, cfg.RecencyMonths, log)
	return registry.NewOrchestrator(api, fallback, verifier, m, log)
}

// runDiscovery queries the lookback window for new registrations and
// publishes every signal not seen in a previous run. A failed index or
// publish leaves the cache unmarked so the signal is retried next run.
func runDiscovery(ctx context.Context, log *slog.Logger, orch *registry.Orchestrator, idx signalIndexer, pub signalPublisher, cache *dedupe.Cache, cfg *config.Worker, m *metrics.Metrics) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(cfg.LookbackDays - 1))

	result, err := orch.DateRange(ctx, models.DateRangeQuery{
		Start:   start,
		End:     end,
		NewOnly: true,
	})
	if err != nil {
		log.Warn("discovery run failed", slog.Any("err", err))
		return
	}

	published := 0
	for _, p := range result.Publications {
		doc := buildSignal(p, result.Source)
		if cache.IsSeen(doc.ID) {
			continue
		}

		if err := idx.IndexSignal(ctx, doc); err != nil {
			log.Error("index signal", slog.String("id", doc.ID), slog.Any("err", err))
			continue
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			log.Error("marshal signal", slog.String("id", doc.ID), slog.Any("err", err))
			continue
		}
		if err := pub.WriteMessages(ctx, kafka.Message{Key: []byte(doc.ID), Value: payload}); err != nil {
			log.Error("publish signal", slog.String("id", doc.ID), slog.Any("err", err))
			continue
		}

		cache.MarkSeen(doc.ID)
		m.ObserveSignal()
		published++
		log.Info("signal published",
			slog.String("id", doc.ID),
			slog.String("name", doc.Name),
			slog.String("canton", doc.Canton),
		)
	}

	log.Info("discovery run completed",
		slog.String("source", result.Source),
		slog.Int("found", result.TotalFound),
		slog.Int("published", published),
	)
}

func buildSignal(p models.RegistryPublication, source string) models.SignalDocument {
	doc := models.SignalDocument{
		Canton:    p.Canton,
		Message:   p.Message,
		Date:      p.Date,
		Source:    source,
		IndexedAt: time.Now().UTC(),
	}
	if c := p.Company; c != nil {
		doc.UID = c.UID
		doc.Name = c.Name
		doc.Seat = c.Seat
		doc.LegalForm = c.LegalForm
		doc.DetailURL = c.DetailURL
	}

	if doc.UID == "" && doc.Name == "" {
		// Nothing stable to hash on; an anonymous entry still gets a
		// unique document.
		doc.ID = uuid.NewString()
		return doc
	}
	doc.ID = processing.BuildSignalID(doc.UID, doc.Name, p.Date)
	return doc
}
