package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/registry"
)

func TestAPIClientUnavailableWithoutCredentials(t *testing.T) {
	client := registry.NewAPIClient("http://example.invalid", "", "", nil)
	require.False(t, client.Available())

	_, err := client.SearchCompany(context.Background(), models.CompanyQuery{Name: "Acme"})
	require.ErrorIs(t, err, registry.ErrUnavailable)
}

func TestAPIClientSearchCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "user", user)
		require.Equal(t, "secret", pass)
		require.Equal(t, "/api/v1/company/search", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Acme SA", body["name"])
		require.Equal(t, "GE", body["canton"])
		// Requested 500 entries must be capped at the hard limit.
		require.Equal(t, float64(50), body["maxEntries"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Acme SA","uid":"CHE123456789","legalSeat":"Genève","canton":"GE",
			 "legalForm":{"name":"Société anonyme"},"status":"ACTIVE","sogcDate":"2025-08-01",
			 "purpose":"Conseil","zefixDetailWeb":"https://zefix.ch/fr/search/entity/1"}
		]`))
	}))
	defer srv.Close()

	client := registry.NewAPIClient(srv.URL, "user", "secret", nil)
	records, err := client.SearchCompany(context.Background(), models.CompanyQuery{
		Name:       "Acme SA",
		Region:     "GE",
		ActiveOnly: true,
		MaxEntries: 500,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Acme SA", records[0].Name)
	require.Equal(t, "CHE-123.456.789", records[0].UID)
	require.Equal(t, "GE", records[0].Canton)
	require.Equal(t, models.StatusActive, records[0].Status)
}

func TestAPIClientPublicationsByDateClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/sogc/bydate/2025-08-20", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"sogcId":"1001","registryOfCommerceCanton":"ZG",
			 "message":"Neueintragung der Gesellschaft Alpenblick GmbH.",
			 "mutationTypes":["Neueintragung"],
			 "company":{"name":"Alpenblick GmbH","uid":"CHE111222333","status":"ACTIVE"}},
			{"sogcId":"1002","registryOfCommerceCanton":"ZG",
			 "message":"Statutenänderung der Firma Bergquelle AG.",
			 "mutationTypes":["Statutenänderung"],
			 "company":{"name":"Bergquelle AG","uid":"CHE444555666","status":"ACTIVE"}}
		]`))
	}))
	defer srv.Close()

	client := registry.NewAPIClient(srv.URL, "user", "secret", nil)
	day := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	pubs, err := client.PublicationsByDate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, pubs, 2)

	require.True(t, pubs[0].IsNewRegistration)
	require.Equal(t, "CHE-111.222.333", pubs[0].Company.UID)
	require.False(t, pubs[1].IsNewRegistration)
}

func TestAPIClientAuthFailureTripsCooldown(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := registry.NewAPIClient(srv.URL, "user", "wrong", nil)

	_, err := client.SearchCompany(context.Background(), models.CompanyQuery{Name: "Acme"})
	require.ErrorIs(t, err, registry.ErrAuth)
	require.Equal(t, int32(1), requests.Load())

	// During the cooldown every call is refused locally, no network hit.
	require.False(t, client.Available())
	_, err = client.SearchCompany(context.Background(), models.CompanyQuery{Name: "Acme"})
	require.ErrorIs(t, err, registry.ErrUnavailable)
	_, err = client.PublicationsByDate(context.Background(), time.Now())
	require.ErrorIs(t, err, registry.ErrUnavailable)
	require.Equal(t, int32(1), requests.Load())
}

func TestAPIClientServerErrorDoesNotTrip(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := registry.NewAPIClient(srv.URL, "user", "secret", nil)

	_, err := client.SearchCompany(context.Background(), models.CompanyQuery{Name: "Acme"})
	require.Error(t, err)
	require.NotErrorIs(t, err, registry.ErrAuth)

	// A one-off outage must not disable the authoritative path.
	require.True(t, client.Available())
	_, _ = client.SearchCompany(context.Background(), models.CompanyQuery{Name: "Acme"})
	require.Equal(t, int32(2), requests.Load())
}

func TestAPIClientCompanyByUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/company/uid/CHE-111.222.333", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name":"Alpenblick GmbH","uid":"CHE111222333","status":"ACTIVE",
			"registryDate":"2025-07-01",
			"sogcPublications":[{"sogcDate":"2025-07-03"},{"sogcDate":"2025-08-20"}]
		}`))
	}))
	defer srv.Close()

	client := registry.NewAPIClient(srv.URL, "user", "secret", nil)
	detail, err := client.CompanyByUID(context.Background(), "CHE-111.222.333")
	require.NoError(t, err)
	require.Equal(t, "CHE-111.222.333", detail.UID)
	require.Equal(t, "2025-07-01", detail.RegistryDate)
	require.Equal(t, []string{"2025-07-03", "2025-08-20"}, detail.PublicationDates)
}
