package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/registry"
)

func pubWithUID(id, uid string) models.RegistryPublication {
	pub := models.RegistryPublication{ID: id}
	if uid != "" {
		pub.Company = &models.CompanyRecord{Name: "Co " + id, UID: uid}
	}
	return pub
}

func TestDedupeFirstSeenWins(t *testing.T) {
	pubs := []models.RegistryPublication{
		pubWithUID("a", "CHE-100.000.001"),
		pubWithUID("b", "CHE-100.000.002"),
		pubWithUID("c", "CHE-100.000.001"),
	}

	out := registry.DedupePublications(pubs)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "b", out[1].ID)
}

func TestDedupeKeepsEntriesWithoutUID(t *testing.T) {
	pubs := []models.RegistryPublication{
		pubWithUID("a", ""),
		pubWithUID("b", ""),
		{ID: "c"}, // no company at all
		pubWithUID("d", "CHE-100.000.001"),
	}

	out := registry.DedupePublications(pubs)
	require.Len(t, out, 4)
}

func TestDedupeIsIdempotent(t *testing.T) {
	pubs := []models.RegistryPublication{
		pubWithUID("a", "CHE-100.000.001"),
		pubWithUID("b", "CHE-100.000.001"),
		pubWithUID("c", ""),
		pubWithUID("d", "CHE-100.000.002"),
	}

	once := registry.DedupePublications(pubs)
	twice := registry.DedupePublications(once)
	require.Equal(t, once, twice)

	seen := map[string]bool{}
	for _, pub := range once {
		if pub.Company == nil || pub.Company.UID == "" {
			continue
		}
		require.False(t, seen[pub.Company.UID], "duplicate uid %s survived", pub.Company.UID)
		seen[pub.Company.UID] = true
	}
}
