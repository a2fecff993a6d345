package notify

import "strings"

// ParseRecipients splits the configured supervisor address list. The value
// is injected once at construction; semicolons and commas both separate,
// matching what operators have historically put in the setting.
func ParseRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})

	recipients := make([]string, 0, len(fields))

	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	return recipients
}
