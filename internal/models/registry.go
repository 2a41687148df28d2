package models

import "time"

// Company status values as reported by the commercial registry.
const (
	StatusActive         = "ACTIVE"
	StatusBeingCancelled = "BEING_CANCELLED"
	StatusCancelled      = "CANCELLED"
)

// Result source tags. Downstream consumers weight confidence by source:
// records derived from web search results are best-effort parses.
const (
	SourceAPI    = "api"
	SourceSearch = "search"
)

// CompanyRecord is a snapshot of a legal entity. UID is the canonical
// registry identifier (CHE-###.###.###) when the record comes from the
// authoritative API; search-derived records may carry an empty UID.
type CompanyRecord struct {
	Name            string `json:"name"`
	UID             string `json:"uid,omitempty"`
	Seat            string `json:"seat,omitempty"`
	Canton          string `json:"canton,omitempty"`
	LegalForm       string `json:"legal_form,omitempty"`
	Status          string `json:"status,omitempty"`
	LastPublication string `json:"last_publication,omitempty"`
	DeletionDate    string `json:"deletion_date,omitempty"`
	Purpose         string `json:"purpose,omitempty"`
	DetailURL       string `json:"detail_url,omitempty"`
}

// RegistryPublication is one dated entry in the official gazette feed.
type RegistryPublication struct {
	ID                string         `json:"id"`
	Date              time.Time      `json:"date"`
	Canton            string         `json:"canton,omitempty"`
	Message           string         `json:"message,omitempty"`
	MutationTypes     []string       `json:"mutation_types,omitempty"`
	IsNewRegistration bool           `json:"is_new_registration"`
	Company           *CompanyRecord `json:"company,omitempty"`
}

// CompanyQuery parameterizes a company-name search.
type CompanyQuery struct {
	Name       string
	Region     string
	ActiveOnly bool
	MaxEntries int
}

// DateRangeQuery parameterizes a gazette search over [Start, End] inclusive.
type DateRangeQuery struct {
	Start   time.Time
	End     time.Time
	NewOnly bool
	Region  string
}

// CompanySearchResult echoes the query alongside the matched companies.
type CompanySearchResult struct {
	Name       string          `json:"name"`
	Canton     string          `json:"canton,omitempty"`
	ActiveOnly bool            `json:"active_only"`
	TotalFound int             `json:"total_found"`
	Companies  []CompanyRecord `json:"companies"`
	Source     string          `json:"source"`
}

// DateRangeResult echoes the query alongside the matched publications.
// Source is SourceSearch when any day in the range was served by the
// search-derived fallback.
type DateRangeResult struct {
	StartDate    string                `json:"start_date"`
	EndDate      string                `json:"end_date"`
	NewOnly      bool                  `json:"new_only"`
	Canton       string                `json:"canton,omitempty"`
	TotalFound   int                   `json:"total_found"`
	Publications []RegistryPublication `json:"publications"`
	Source       string                `json:"source"`
}

// SignalDocument is the canonical structure stored in Elasticsearch for a
// discovered new registration.
type SignalDocument struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid,omitempty"`
	Name      string    `json:"name"`
	Seat      string    `json:"seat,omitempty"`
	Canton    string    `json:"canton,omitempty"`
	LegalForm string    `json:"legal_form,omitempty"`
	Message   string    `json:"message,omitempty"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	DetailURL string    `json:"detail_url,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}
