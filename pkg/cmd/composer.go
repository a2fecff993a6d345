package cmd

import (
	"fmt"
	"net/url"

	"github.com/nvelasco/fasegate/internal/maildrop"
)

// NewComposer creates the notification mail composer. An smtp URL hands
// messages to a relay; a file URL spools them to disk for development.
func NewComposer(composerURL string) (maildrop.Composer, error) {
	parsed, err := url.Parse(composerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse maildrop URL: %w", err)
	}

	switch parsed.Scheme {
	case "smtp":
		from := parsed.Query().Get("from")
		if from == "" {
			return nil, fmt.Errorf("smtp maildrop URL is missing the from query parameter: %s", composerURL)
		}

		return maildrop.NewSMTPComposer(parsed.Host, from), nil
	case "file":
		composer, err := maildrop.NewSpoolComposer(parsed.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create spool composer: %w", err)
		}

		return composer, nil
	default:
		return nil, fmt.Errorf("unsupported maildrop scheme: %s", parsed.Scheme)
	}
}
