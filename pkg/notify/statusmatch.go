package notify

import (
	"strings"

	"github.com/nvelasco/fasegate/pkg/models"
)

// MatchStatus resolves the product status for a phase by fuzzy name/code
// match against the status catalog: case-insensitive name equality first,
// then code equality, then substring containment either way. Within each
// pass the first catalog entry wins. The zero result means no match, in
// which case the caller must not advance the product's status.
func MatchStatus(phase models.Phase, statuses []models.ProductStatus) (models.ProductStatus, bool) {
	phaseName := strings.ToLower(strings.TrimSpace(phase.Name))

	for _, status := range statuses {
		if strings.ToLower(strings.TrimSpace(status.Name)) == phaseName && phaseName != "" {
			return status, true
		}
	}

	if phase.Code != "" {
		for _, status := range statuses {
			if status.Code != "" && strings.EqualFold(status.Code, phase.Code) {
				return status, true
			}
		}
	}

	if phaseName != "" {
		for _, status := range statuses {
			statusName := strings.ToLower(strings.TrimSpace(status.Name))
			if statusName == "" {
				continue
			}

			if strings.Contains(statusName, phaseName) || strings.Contains(phaseName, statusName) {
				return status, true
			}
		}
	}

	return models.ProductStatus{}, false
}
