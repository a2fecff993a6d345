package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvelasco/fasegate/pkg/clients"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/persistence/memory"
	"github.com/nvelasco/fasegate/pkg/persistence/postgresql"
)

// NewLedgerStore creates the completion record store. A postgres URL gets
// the owned SQL store; "memory" keeps records in process; anything else is
// treated as the base URL of the collaborator REST API.
func NewLedgerStore(ctx context.Context, logger *slog.Logger, storeURL string) (ledger.Store, error) {
	switch {
	case strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://"):
		store, err := postgresql.NewStore(ctx, logger, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql record store: %w", err)
		}

		return store, nil
	case storeURL == "" || storeURL == "memory":
		return memory.NewStore(), nil
	default:
		return clients.New(storeURL, logger), nil
	}
}
