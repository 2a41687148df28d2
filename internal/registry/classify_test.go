package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvonlanthen/registry-radar/internal/models"
	"github.com/mvonlanthen/registry-radar/internal/registry"
)

func TestClassifyMessages(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		message string
		company *models.CompanyRecord
		want    bool
	}{
		{
			name:    "german new registration",
			message: "Neueintragung der Gesellschaft Alpenblick Consulting GmbH mit Sitz in Zug.",
			want:    true,
		},
		{
			name:    "italian new registration",
			message: "Nuova iscrizione della società Bellavista Immobiliare Sagl.",
			want:    true,
		},
		{
			name:    "french amendment",
			message: "Modification des statuts de la société Horlogerie du Lac SA.",
			want:    false,
		},
		{
			name:    "german deletion",
			message: "Löschung infolge Verlegung des Sitzes ins Ausland.",
			want:    false,
		},
		{
			name:    "re-registration is not new",
			message: "Wiedereintragung der im Handelsregister gelöschten Firma.",
			want:    false,
		},
		{
			name:    "new registration born from merger",
			message: "Nouvelle inscription au registre du commerce par suite de fusion",
			want:    false,
		},
		{
			name:    "new registration born from demerger",
			message: "Neueintragung der Gesellschaft infolge Abspaltung",
			want:    false,
		},
		{
			name:    "exclusion at start beats new phrase later",
			message: "Radiation: la société annonce une nouvelle inscription prochaine.",
			want:    false,
		},
		{
			name:    "new phrase at start beats exclusion later",
			message: "Neueintragung der Gesellschaft; die Löschung der Zweigniederlassung folgt.",
			want:    true,
		},
		{
			name:    "leading whitespace is ignored",
			message: "   Neueintragung der Einzelfirma Bergquelle.",
			want:    true,
		},
		{
			name:    "no signal phrases and no tags",
			message: "Die Generalversammlung fand am 3. Mai statt.",
			want:    false,
		},
		{
			name:    "empty message and no tags",
			message: "",
			want:    false,
		},
		{
			name:    "tags without new vocabulary dominate message",
			tags:    []string{"Statutenänderung"},
			message: "Neueintragung der Gesellschaft Alpenblick Consulting GmbH.",
			want:    false,
		},
		{
			name:    "normalized tag matches vocabulary",
			tags:    []string{"NEW_REGISTRATION"},
			message: "Neueintragung der Gesellschaft.",
			want:    true,
		},
		{
			name:    "new tag carries entry without phrases",
			tags:    []string{"Neueintragung"},
			message: "Gesellschaft mit Sitz in Chur.",
			want:    true,
		},
		{
			name:    "cancelled company is vetoed",
			message: "Neueintragung der Gesellschaft.",
			company: &models.CompanyRecord{Status: models.StatusCancelled},
			want:    false,
		},
		{
			name:    "company in liquidation is vetoed",
			message: "Nuova iscrizione della società.",
			company: &models.CompanyRecord{Status: models.StatusBeingCancelled},
			want:    false,
		},
		{
			name:    "deletion date is vetoed",
			message: "Neueintragung der Gesellschaft.",
			company: &models.CompanyRecord{Status: models.StatusActive, DeletionDate: "2025-04-01"},
			want:    false,
		},
		{
			name:    "active company passes status check",
			message: "Nouvelle inscription de la société Café du Pont Sàrl.",
			company: &models.CompanyRecord{Status: models.StatusActive},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.Classify(tt.tags, tt.message, tt.company)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	tags := []string{"Neueintragung"}
	message := "Neueintragung der Gesellschaft."
	company := &models.CompanyRecord{Status: models.StatusActive}

	first := registry.Classify(tags, message, company)
	for n := 0; n < 10; n++ {
		require.Equal(t, first, registry.Classify(tags, message, company))
	}
	require.Equal(t, []string{"Neueintragung"}, tags)
}
