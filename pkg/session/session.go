// Package session stores the per-panel workflow state: active phase,
// session-local notification flags and any suspended confirmation or
// recipient pick. Sessions are ephemeral; nothing here is authoritative.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nvelasco/fasegate/pkg/models"
)

// DefaultTTL is how long an idle session survives before the store may
// discard it. Every save extends the deadline.
const DefaultTTL = 4 * time.Hour

// ErrSessionNotFound indicates the session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Store persists panel sessions. The memory store backs single-instance
// deployments and tests; the redis store backs multi-instance ones.
type Store interface {
	Create(ctx context.Context, sess *models.PanelSession) error
	Get(ctx context.Context, id string) (*models.PanelSession, error)
	Save(ctx context.Context, sess *models.PanelSession) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewPanelSession creates the session state for one product panel, starting
// at the given active phase.
func NewPanelSession(productID int, actor models.Actor, activePhaseID int) *models.PanelSession {
	now := time.Now().UTC()

	return &models.PanelSession{
		ID:            uuid.New().String(),
		ProductID:     productID,
		Actor:         actor,
		ActivePhaseID: activePhaseID,
		EmailSent:     make(map[int]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(DefaultTTL),
	}
}

// IsNotFound checks whether an error is a missing-session error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
