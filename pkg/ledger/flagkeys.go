package ledger

import (
	"maps"
	"regexp"
	"slices"
)

// The backend does not guarantee stable names for the two flag columns;
// deployments have been seen with completadaSn, completadoSN and similar.
// The keys are therefore discovered by pattern over whatever shape the
// store returns, falling back to the canonical names when no record exists
// yet to learn from.

var (
	completedKeyPattern = regexp.MustCompile(`(?i)complet`)
	validatedKeyPattern = regexp.MustCompile(`(?i)validada|supervisor`)
)

// Canonical flag field names, used when creating records from scratch.
const (
	defaultCompletedKey = "completadaSn"
	defaultValidatedKey = "validadaSupervisrSN" // sic, matches the backend column
)

// detectFlagKey returns the first key of the raw record matching the
// pattern, or fallback when none does. Keys are scanned in sorted order so
// detection is deterministic. This is the only place the dynamic shape is
// interpreted; everything above works on the normalized record.
func detectFlagKey(raw map[string]any, pattern *regexp.Regexp, fallback string) string {
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		if pattern.MatchString(key) {
			return key
		}
	}

	return fallback
}

// flagKeys resolves both flag field names for one raw record.
func flagKeys(raw map[string]any) (completedKey, validatedKey string) {
	completedKey = detectFlagKey(raw, completedKeyPattern, defaultCompletedKey)

	// The completion key must not double as the validation key: "complet"
	// never matches the validation pattern's fallback path, but a column
	// like "completadaSupervisorSn" would satisfy both. Prefer a distinct
	// key for validation when one exists.
	validatedKey = fallbackAware(raw, completedKey)

	return completedKey, validatedKey
}

func fallbackAware(raw map[string]any, completedKey string) string {
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		if key == completedKey {
			continue
		}

		if validatedKeyPattern.MatchString(key) {
			return key
		}
	}

	return defaultValidatedKey
}
