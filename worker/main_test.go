package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/mvonlanthen/registry-radar/internal/config"
	"github.com/mvonlanthen/registry-radar/internal/dedupe"
	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/registry"
)

type stubIndexer struct {
	docs []models.SignalDocument
	err  error
}

func (s *stubIndexer) IndexSignal(_ context.Context, doc models.SignalDocument) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubPublisher struct {
	msgs []kafka.Message
	err  error
}

func (s *stubPublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

type fixedSource struct {
	pubs []models.RegistryPublication
}

func (f *fixedSource) Available() bool { return true }

func (f *fixedSource) SearchCompany(_ context.Context, _ models.CompanyQuery) ([]models.CompanyRecord, error) {
	return nil, nil
}

func (f *fixedSource) PublicationsByDate(_ context.Context, day time.Time) ([]models.RegistryPublication, error) {
	var out []models.RegistryPublication
	for _, p := range f.pubs {
		if p.Date.UTC().Truncate(24 * time.Hour).Equal(day) {
			out = append(out, p)
		}
	}
	return out, nil
}

type deadSource struct{}

func (deadSource) SearchCompany(_ context.Context, _ models.CompanyQuery) ([]models.CompanyRecord, error) {
	return nil, errors.New("unused")
}

func (deadSource) PublicationsByDate(_ context.Context, _ time.Time) ([]models.RegistryPublication, error) {
	return nil, errors.New("unused")
}

func testPublication(uid, name string) models.RegistryPublication {
	return models.RegistryPublication{
		ID:                "pub-" + uid,
		Date:              time.Now().UTC().Truncate(24 * time.Hour),
		Canton:            "ZH",
		Message:           "Neueintragung: " + name,
		IsNewRegistration: true,
		Company: &models.CompanyRecord{
			Name:   name,
			UID:    uid,
			Seat:   "Zürich",
			Status: models.StatusActive,
		},
	}
}

func testWorkerConfig() *config.Worker {
	return &config.Worker{
		Common: config.Common{
			ElasticsearchAddr:  "http://test",
			ElasticsearchIndex: "registry_signals",
		},
		LookbackDays: 2,
	}
}

func TestRunDiscoveryPublishesSignals(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &fixedSource{pubs: []models.RegistryPublication{
		testPublication("CHE-100.000.001", "Alpenblick GmbH"),
	}}
	orch := registry.NewOrchestrator(source, deadSource{}, nil, nil, log)

	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}
	pub := &stubPublisher{}

	runDiscovery(context.Background(), log, orch, idx, pub, cache, testWorkerConfig(), nil)

	require.Len(t, idx.docs, 1)
	require.Len(t, pub.msgs, 1)

	doc := idx.docs[0]
	require.Equal(t, "CHE-100.000.001", doc.UID)
	require.Equal(t, "Alpenblick GmbH", doc.Name)
	require.Equal(t, "ZH", doc.Canton)
	require.Equal(t, models.SourceAPI, doc.Source)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, doc.ID, string(pub.msgs[0].Key))

	var payload models.SignalDocument
	require.NoError(t, json.Unmarshal(pub.msgs[0].Value, &payload))
	require.Equal(t, doc.ID, payload.ID)

	// The same window again produces nothing new.
	runDiscovery(context.Background(), log, orch, idx, pub, cache, testWorkerConfig(), nil)
	require.Len(t, idx.docs, 1)
	require.Len(t, pub.msgs, 1)
}

func TestRunDiscoveryRetriesAfterPublishFailure(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &fixedSource{pubs: []models.RegistryPublication{
		testPublication("CHE-100.000.001", "Alpenblick GmbH"),
	}}
	orch := registry.NewOrchestrator(source, deadSource{}, nil, nil, log)

	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}
	pub := &stubPublisher{err: errors.New("broker down")}

	runDiscovery(context.Background(), log, orch, idx, pub, cache, testWorkerConfig(), nil)
	require.Empty(t, pub.msgs)
	require.False(t, cache.IsSeen(idx.docs[0].ID))

	// Once the broker recovers the signal goes out on the next run.
	pub.err = nil
	runDiscovery(context.Background(), log, orch, idx, pub, cache, testWorkerConfig(), nil)
	require.Len(t, pub.msgs, 1)
	require.True(t, cache.IsSeen(idx.docs[0].ID))
}

func TestBuildSignalIDs(t *testing.T) {
	day := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

	withUID := buildSignal(models.RegistryPublication{
		Date:    day,
		Canton:  "GE",
		Company: &models.CompanyRecord{Name: "Acme SA", UID: "CHE-100.000.001"},
	}, models.SourceAPI)
	again := buildSignal(models.RegistryPublication{
		Date:    day.AddDate(0, 0, 3),
		Company: &models.CompanyRecord{Name: "Acme Société Anonyme", UID: "CHE-100.000.001"},
	}, models.SourceSearch)
	require.Equal(t, withUID.ID, again.ID)

	anonymous := buildSignal(models.RegistryPublication{Date: day, Message: "Neueintragung"}, models.SourceSearch)
	require.NotEmpty(t, anonymous.ID)
	require.NotEqual(t, withUID.ID, anonymous.ID)

	other := buildSignal(models.RegistryPublication{Date: day, Message: "Neueintragung"}, models.SourceSearch)
	require.NotEqual(t, anonymous.ID, other.ID)
}
