package registry

import "github.com/mvonlanthen/registry-radar/internal/models"

// DedupePublications removes later entries whose company UID was already
// seen. Order-preserving, first-seen-wins. Entries with no company or an
// empty UID are never considered duplicates of each other and are kept.
func DedupePublications(pubs []models.RegistryPublication) []models.RegistryPublication {
	seen := make(map[string]struct{}, len(pubs))
	out := make([]models.RegistryPublication, 0, len(pubs))
	for _, pub := range pubs {
		if pub.Company != nil && pub.Company.UID != "" {
			if _, dup := seen[pub.Company.UID]; dup {
				continue
			}
			seen[pub.Company.UID] = struct{}{}
		}
		out = append(out, pub)
	}
	return out
}
