package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/processing"
	"github.com/mvonlanthen/registry-radar/internal/search"
)

// detailDomain hosts the registry's public company detail pages;
// gazetteDomains host the official publication feed.
const detailDomain = "zefix.ch"

var gazetteDomains = []string{"shab.ch", "fosc.ch"}

// Per-language phrases used to bias date queries toward new registrations.
var gazetteQueryPhrases = []string{
	`"Neueintragung"`,
	`"Nouvelle inscription"`,
	`"Nuova iscrizione"`,
}

// SearchProvider returns organic web results for a free-text query.
type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]search.Result, error)
}

// FallbackClient approximates registry queries from web search results
// when the authoritative API is unavailable. Records are lower fidelity:
// heuristically parsed names, best-effort UIDs and cantons, no status.
type FallbackClient struct {
	provider SearchProvider
	log      *slog.Logger
}

// NewFallbackClient instantiates the search-derived client.
func NewFallbackClient(provider SearchProvider, log *slog.Logger) *FallbackClient {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FallbackClient{provider: provider, log: log}
}

// SearchCompany approximates a name search by constraining results to the
// registry's public detail-page domain.
func (f *FallbackClient) SearchCompany(ctx context.Context, q models.CompanyQuery) ([]models.CompanyRecord, error) {
	maxEntries := q.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if maxEntries > hardMaxEntries {
		maxEntries = hardMaxEntries
	}

	query := fmt.Sprintf("site:%s %q", detailDomain, strings.TrimSpace(q.Name))
	if q.Region != "" {
		query += " " + q.Region
	}

	results, err := f.provider.Search(ctx, query, maxEntries)
	if err != nil {
		return nil, fmt.Errorf("fallback company search: %w", err)
	}

	records := make([]models.CompanyRecord, 0, len(results))
	for _, res := range results {
		record, ok := f.parseCompany(res)
		if !ok {
			continue
		}
		records = append(records, record)
		if len(records) >= maxEntries {
			break
		}
	}
	return records, nil
}

// PublicationsByDate approximates "publications on day D" by constraining
// results to the gazette domains plus the date and the new-registration
// phrases in the three publication languages.
func (f *FallbackClient) PublicationsByDate(ctx context.Context, day time.Time) ([]models.RegistryPublication, error) {
	sites := make([]string, 0, len(gazetteDomains))
	for _, domain := range gazetteDomains {
		sites = append(sites, "site:"+domain)
	}
	query := fmt.Sprintf("(%s) %q (%s)",
		strings.Join(sites, " OR "),
		day.Format("02.01.2006"),
		strings.Join(gazetteQueryPhrases, " OR "),
	)

	results, err := f.provider.Search(ctx, query, hardMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("fallback date search: %w", err)
	}

	pubs := make([]models.RegistryPublication, 0, len(results))
	for _, res := range results {
		record, ok := f.parseCompany(res)
		if !ok {
			continue
		}
		message := strings.TrimSpace(res.Description)
		pub := models.RegistryPublication{
			ID:      processing.BuildSignalID(record.UID, record.Name, day),
			Date:    day,
			Canton:  record.Canton,
			Message: message,
			Company: &record,
		}
		pub.IsNewRegistration = Classify(nil, message, pub.Company)
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// parseCompany turns one search hit into a best-effort company record.
// Hits without a usable name are dropped; a missing UID is tolerated.
func (f *FallbackClient) parseCompany(res search.Result) (models.CompanyRecord, bool) {
	name := processing.CleanTitle(res.Title)
	if name == "" {
		return models.CompanyRecord{}, false
	}

	combined := res.Title + " " + res.Description
	return models.CompanyRecord{
		Name:      name,
		UID:       processing.ExtractUID(combined),
		Canton:    processing.ExtractCanton(combined),
		DetailURL: strings.TrimSpace(res.URL),
	}, true
}
