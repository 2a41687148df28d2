package registry

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvonlanthen/registry-radar/internal/metrics"
	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/regions"
)

const (
	// More days are permitted when the authoritative API is confirmed
	// reachable; the search-derived path is more expensive per day.
	maxDaysAPI      = 14
	maxDaysFallback = 5

	fallbackBatchSize = 3
)

// AuthoritativeSource is the structured-API side of the dual retrieval
// strategy. Available must be a cheap local check.
type AuthoritativeSource interface {
	Available() bool
	SearchCompany(ctx context.Context, q models.CompanyQuery) ([]models.CompanyRecord, error)
	PublicationsByDate(ctx context.Context, day time.Time) ([]models.RegistryPublication, error)
}

// SecondarySource is the search-derived side.
type SecondarySource interface {
	SearchCompany(ctx context.Context, q models.CompanyQuery) ([]models.CompanyRecord, error)
	PublicationsByDate(ctx context.Context, day time.Time) ([]models.RegistryPublication, error)
}

// Orchestrator expands date ranges into per-day fetches, picks the active
// source, executes batches with partial-failure tolerance, and merges.
type Orchestrator struct {
	api      AuthoritativeSource
	fallback SecondarySource
	verifier *AgeVerifier
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewOrchestrator wires the pipeline. verifier and m may be nil.
func NewOrchestrator(api AuthoritativeSource, fallback SecondarySource, verifier *AgeVerifier, m *metrics.Metrics, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{api: api, fallback: fallback, verifier: verifier, metrics: m, log: log}
}

// SearchCompany runs a name search against the authoritative API and falls
// back to web search for this call only when the API errors.
func (o *Orchestrator) SearchCompany(ctx context.Context, q models.CompanyQuery) (*models.CompanySearchResult, error) {
	canton := ""
	if q.Region != "" {
		canton = regions.Normalize(q.Region)
		q.Region = canton
	}

	companies, source := o.fetchCompanies(ctx, q)

	if q.ActiveOnly {
		kept := companies[:0]
		for _, company := range companies {
			if company.Status == models.StatusCancelled || company.Status == models.StatusBeingCancelled {
				continue
			}
			kept = append(kept, company)
		}
		companies = kept
	}

	return &models.CompanySearchResult{
		Name:       q.Name,
		Canton:     canton,
		ActiveOnly: q.ActiveOnly,
		TotalFound: len(companies),
		Companies:  companies,
		Source:     source,
	}, nil
}

func (o *Orchestrator) fetchCompanies(ctx context.Context, q models.CompanyQuery) ([]models.CompanyRecord, string) {
	if o.api.Available() {
		companies, err := o.api.SearchCompany(ctx, q)
		if err == nil {
			o.metrics.ObserveFetch(models.SourceAPI)
			return companies, models.SourceAPI
		}
		o.log.Warn("authoritative search failed, degrading to web search",
			slog.String("name", q.Name),
			slog.Any("err", err),
		)
		o.metrics.ObserveFallback()
	}

	companies, err := o.fallback.SearchCompany(ctx, q)
	if err != nil {
		// Both sources denied; an empty result, never an error.
		o.log.Warn("fallback search failed", slog.String("name", q.Name), slog.Any("err", err))
		return nil, models.SourceSearch
	}
	o.metrics.ObserveFetch(models.SourceSearch)
	return companies, models.SourceSearch
}

// dayResult is the outcome of one day's retrieval: either a publication
// list tagged with the serving source, or nothing.
type dayResult struct {
	pubs   []models.RegistryPublication
	source string
	failed bool
}

// fetchDay tries the authoritative API first and degrades to the
// search-derived source. A day where both sides fail contributes nothing.
func (o *Orchestrator) fetchDay(ctx context.Context, day time.Time) dayResult {
	if o.api.Available() {
		pubs, err := o.api.PublicationsByDate(ctx, day)
		if err == nil {
			o.metrics.ObserveFetch(models.SourceAPI)
			return dayResult{pubs: pubs, source: models.SourceAPI}
		}
		o.log.Warn("authoritative day fetch failed, degrading to web search",
			slog.String("day", day.Format("2006-01-02")),
			slog.Any("err", err),
		)
		o.metrics.ObserveFallback()
	}

	pubs, err := o.fallback.PublicationsByDate(ctx, day)
	if err != nil {
		o.log.Warn("day fetch failed on both sources",
			slog.String("day", day.Format("2006-01-02")),
			slog.Any("err", err),
		)
		o.metrics.ObserveFailedDay()
		return dayResult{failed: true}
	}
	o.metrics.ObserveFetch(models.SourceSearch)
	return dayResult{pubs: pubs, source: models.SourceSearch}
}

// DateRange returns the gazette publications for [Start, End] inclusive.
// The actual day list is clamped to the most recent days the active
// source permits. A start date after the end date yields zero days and an
// empty envelope, not an error.
func (o *Orchestrator) DateRange(ctx context.Context, q models.DateRangeQuery) (*models.DateRangeResult, error) {
	days := expandDays(q.Start, q.End)

	// Probe the most recent day to learn which source is active. The
	// probe's result is kept so the day is not fetched twice.
	results := make(map[time.Time]dayResult, len(days))
	useAPI := o.api.Available()
	if useAPI && len(days) > 1 {
		probe := o.fetchDay(ctx, days[len(days)-1])
		results[days[len(days)-1]] = probe
		if probe.source != models.SourceAPI {
			useAPI = false
		}
	}

	maxDays := maxDaysFallback
	if useAPI {
		maxDays = maxDaysAPI
	}
	if len(days) > maxDays {
		days = days[len(days)-maxDays:]
	}

	batchSize := fallbackBatchSize
	if useAPI {
		batchSize = len(days)
	}

	o.runBatches(ctx, days, batchSize, results)

	merged := make([]models.RegistryPublication, 0)
	source := models.SourceAPI
	if !useAPI {
		source = models.SourceSearch
	}
	for _, day := range days {
		res := results[day]
		if res.failed {
			continue
		}
		if res.source == models.SourceSearch {
			source = models.SourceSearch
		}
		merged = append(merged, res.pubs...)
	}

	if q.NewOnly {
		merged = o.filterNew(ctx, merged)
	}
	merged = DedupePublications(merged)

	canton := ""
	if q.Region != "" {
		canton = regions.Normalize(q.Region)
		merged = filterRegion(merged, canton)
	}

	return &models.DateRangeResult{
		StartDate:    q.Start.Format("2006-01-02"),
		EndDate:      q.End.Format("2006-01-02"),
		NewOnly:      q.NewOnly,
		Canton:       canton,
		TotalFound:   len(merged),
		Publications: merged,
		Source:       source,
	}, nil
}

// runBatches executes day fetches in chronological batches. Days within a
// batch run concurrently; a failed day contributes an empty slot and never
// aborts its siblings or later batches.
func (o *Orchestrator) runBatches(ctx context.Context, days []time.Time, batchSize int, results map[time.Time]dayResult) {
	if batchSize <= 0 {
		batchSize = 1
	}

	pending := make([]time.Time, 0, len(days))
	for _, day := range days {
		if _, done := results[day]; !done {
			pending = append(pending, day)
		}
	}

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]
		slots := make([]dayResult, len(batch))

		var g errgroup.Group
		for i, day := range batch {
			i, day := i, day
			g.Go(func() error {
				// fetchDay absorbs its own failures.
				slots[i] = o.fetchDay(ctx, day)
				return nil
			})
		}
		_ = g.Wait()

		for i, day := range batch {
			results[day] = slots[i]
		}
	}
}

// filterNew keeps classified new registrations that also pass the age
// check. Verification is skipped entirely when no verifier is wired.
func (o *Orchestrator) filterNew(ctx context.Context, pubs []models.RegistryPublication) []models.RegistryPublication {
	kept := make([]models.RegistryPublication, 0, len(pubs))
	for _, pub := range pubs {
		if !pub.IsNewRegistration {
			continue
		}
		if o.verifier != nil && pub.Company != nil && pub.Company.UID != "" {
			if !o.verifier.WithinWindow(ctx, pub.Company.UID) {
				continue
			}
		}
		kept = append(kept, pub)
	}
	return kept
}

// filterRegion keeps publications in the given canton. An empty canton
// code on a publication means the region is unknown, which never excludes.
func filterRegion(pubs []models.RegistryPublication, canton string) []models.RegistryPublication {
	if canton == "" {
		return pubs
	}
	kept := make([]models.RegistryPublication, 0, len(pubs))
	for _, pub := range pubs {
		if pub.Canton != "" && pub.Canton != canton {
			continue
		}
		kept = append(kept, pub)
	}
	return kept
}

// expandDays lists each day of [start, end] inclusive, truncated to
// midnight UTC. start after end yields an empty list.
func expandDays(start, end time.Time) []time.Time {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}
