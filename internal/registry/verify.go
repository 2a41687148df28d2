package registry

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// uidLookup is the slice of the authoritative client the verifier needs.
type uidLookup interface {
	CompanyByUID(ctx context.Context, uid string) (*CompanyDetail, error)
}

// AgeVerifier rejects candidates whose entity is demonstrably older than
// the recency window. It is a precision filter, not a source of truth:
// every failure mode (lookup error, malformed identifier, unparseable
// date) resolves to keep, so transient trouble never loses data.
type AgeVerifier struct {
	lookup uidLookup
	months int
	log    *slog.Logger
}

// NewAgeVerifier builds a verifier with the given recency window in months.
func NewAgeVerifier(lookup uidLookup, months int, log *slog.Logger) *AgeVerifier {
	if months <= 0 {
		months = 3
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AgeVerifier{lookup: lookup, months: months, log: log}
}

// WithinWindow reports whether the entity's earliest known publication or
// registration date falls inside the recency window. The lookup runs
// detached from caller cancellation; it is best effort.
func (v *AgeVerifier) WithinWindow(ctx context.Context, uid string) bool {
	if uid == "" || v.lookup == nil {
		return true
	}

	detail, err := v.lookup.CompanyByUID(context.WithoutCancel(ctx), uid)
	if err != nil || detail == nil {
		if err != nil {
			v.log.Debug("age lookup failed, keeping candidate",
				slog.String("uid", uid),
				slog.Any("err", err),
			)
		}
		return true
	}

	cutoff := time.Now().AddDate(0, -v.months, 0)

	// More than one gazette publication means the entity has history;
	// the earliest one dates it.
	if len(detail.PublicationDates) > 1 {
		earliest, ok := earliestDate(detail.PublicationDates)
		if ok && earliest.Before(cutoff) {
			return false
		}
		return true
	}

	if detail.RegistryDate != "" {
		registered, err := time.Parse("2006-01-02", detail.RegistryDate)
		if err == nil && registered.Before(cutoff) {
			return false
		}
	}
	return true
}

func earliestDate(raw []string) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, s := range raw {
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			continue
		}
		if !found || ts.Before(earliest) {
			earliest = ts
			found = true
		}
	}
	return earliest, found
}
