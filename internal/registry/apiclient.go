package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/processing"
)

var (
	// ErrUnavailable signals that the authoritative API must not be
	// called right now: credentials are missing or the gate is closed.
	ErrUnavailable = errors.New("registry api unavailable")

	// ErrAuth wraps 401/403 responses. Callers fall back to the
	// search-derived source when they see it.
	ErrAuth = errors.New("registry api authentication failed")
)

const (
	authCooldown  = 30 * time.Minute
	queryTimeout  = 15 * time.Second
	lookupTimeout = 8 * time.Second

	defaultMaxEntries = 20
	hardMaxEntries    = 50
)

// CompanyDetail is the slim company view used for age verification.
type CompanyDetail struct {
	UID              string
	Status           string
	RegistryDate     string
	PublicationDates []string
}

// APIClient performs authenticated structured queries against the
// commercial-registry REST API.
type APIClient struct {
	baseURL  string
	username string
	password string
	gate     *Gate
	http     *http.Client
	log      *slog.Logger
}

// NewAPIClient instantiates the authoritative client with its own gate.
func NewAPIClient(baseURL, username, password string, log *slog.Logger) *APIClient {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		gate:     NewGate(),
		// Per-request timeouts are set via context; the transport-level
		// timeout is a backstop.
		http: &http.Client{Timeout: queryTimeout + time.Second},
		log:  log,
	}
}

// Available reports whether the client may be called: credentials are
// present and no auth cooldown is active. This is a local check, no
// network call is made.
func (c *APIClient) Available() bool {
	return c.username != "" && c.password != "" && c.gate.Open()
}

// wire types

type wireCompany struct {
	Name      string `json:"name"`
	UID       string `json:"uid"`
	LegalSeat string `json:"legalSeat"`
	Canton    string `json:"canton"`
	LegalForm struct {
		Name string `json:"name"`
	} `json:"legalForm"`
	Status       string `json:"status"`
	SogcDate     string `json:"sogcDate"`
	DeletionDate string `json:"deletionDate"`
	Purpose      string `json:"purpose"`
	DetailWeb    string `json:"zefixDetailWeb"`
}

type wirePublication struct {
	ID            string       `json:"sogcId"`
	Date          string       `json:"sogcDate"`
	Canton        string       `json:"registryOfCommerceCanton"`
	Message       string       `json:"message"`
	MutationTypes []string     `json:"mutationTypes"`
	Company       *wireCompany `json:"company"`
}

type wireDetail struct {
	wireCompany
	SogcPublications []struct {
		SogcDate string `json:"sogcDate"`
	} `json:"sogcPublications"`
	RegistryDate string `json:"registryDate"`
}

func (w wireCompany) toRecord() models.CompanyRecord {
	return models.CompanyRecord{
		Name:            w.Name,
		UID:             processing.NormalizeUID(w.UID),
		Seat:            w.LegalSeat,
		Canton:          w.Canton,
		LegalForm:       w.LegalForm.Name,
		Status:          w.Status,
		LastPublication: w.SogcDate,
		DeletionDate:    w.DeletionDate,
		Purpose:         w.Purpose,
		DetailURL:       w.DetailWeb,
	}
}

// SearchCompany queries the registry by company name.
func (c *APIClient) SearchCompany(ctx context.Context, q models.CompanyQuery) ([]models.CompanyRecord, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	maxEntries := q.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if maxEntries > hardMaxEntries {
		maxEntries = hardMaxEntries
	}

	body := map[string]any{
		"name":       q.Name,
		"activeOnly": q.ActiveOnly,
		"maxEntries": maxEntries,
	}
	if q.Region != "" {
		body["canton"] = q.Region
	}

	var companies []wireCompany
	if err := c.do(ctx, http.MethodPost, "/api/v1/company/search", body, queryTimeout, &companies); err != nil {
		return nil, err
	}

	records := make([]models.CompanyRecord, 0, len(companies))
	for _, company := range companies {
		records = append(records, company.toRecord())
	}
	return records, nil
}

// PublicationsByDate returns every gazette entry published on the given
// day, each already classified.
func (c *APIClient) PublicationsByDate(ctx context.Context, day time.Time) ([]models.RegistryPublication, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	path := "/api/v1/sogc/bydate/" + day.Format("2006-01-02")
	var entries []wirePublication
	if err := c.do(ctx, http.MethodGet, path, nil, queryTimeout, &entries); err != nil {
		return nil, err
	}

	pubs := make([]models.RegistryPublication, 0, len(entries))
	for _, entry := range entries {
		pub := models.RegistryPublication{
			ID:            entry.ID,
			Date:          day,
			Canton:        entry.Canton,
			Message:       entry.Message,
			MutationTypes: entry.MutationTypes,
		}
		if entry.Company != nil {
			record := entry.Company.toRecord()
			pub.Company = &record
			if pub.Canton == "" {
				pub.Canton = record.Canton
			}
		}
		pub.IsNewRegistration = Classify(pub.MutationTypes, pub.Message, pub.Company)
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// CompanyByUID fetches the publication history for a single entity. Uses
// the shorter lookup timeout; this call backs the age-verification step.
func (c *APIClient) CompanyByUID(ctx context.Context, uid string) (*CompanyDetail, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	var detail wireDetail
	path := "/api/v1/company/uid/" + url.PathEscape(uid)
	if err := c.do(ctx, http.MethodGet, path, nil, lookupTimeout, &detail); err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(detail.SogcPublications))
	for _, p := range detail.SogcPublications {
		dates = append(dates, p.SogcDate)
	}
	return &CompanyDetail{
		UID:              processing.NormalizeUID(detail.UID),
		Status:           detail.Status,
		RegistryDate:     detail.RegistryDate,
		PublicationDates: dates,
	}, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry api request: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		// Bad credentials stay bad; stop hammering the API for a while.
		c.gate.TripFor(authCooldown)
		c.log.Warn("registry api auth failed, cooling down",
			slog.Int("status", res.StatusCode),
			slog.Duration("cooldown", authCooldown),
		)
		return fmt.Errorf("http %d: %w", res.StatusCode, ErrAuth)
	case res.StatusCode != http.StatusOK:
		// One-off outages do not disable the authoritative path.
		data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("registry api http %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}
	return nil
}
