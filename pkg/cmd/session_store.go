package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvelasco/fasegate/pkg/session"
)

// NewSessionStore creates a session store based on the URL scheme. Redis
// URLs get the shared store; anything else falls back to process memory.
func NewSessionStore(ctx context.Context, storeURL string) (session.Store, error) {
	if strings.HasPrefix(storeURL, "redis://") || strings.HasPrefix(storeURL, "rediss://") {
		store, err := session.NewRedisStore(ctx, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}

		return store, nil
	}

	return session.NewMemoryStore(), nil
}
