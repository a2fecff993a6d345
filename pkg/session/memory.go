package session

import (
	"context"
	"sync"
	"time"

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/robfig/cron/v3"
)

// MemoryStore keeps sessions in process memory. Expired sessions are swept
// by a background janitor so an abandoned panel does not pin its state
// forever.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.PanelSession
	sweeper  *cron.Cron
}

// NewMemoryStore creates an in-memory session store with a minutely expiry
// sweep.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*models.PanelSession),
		sweeper:  cron.New(),
	}

	// Registration of a literal spec cannot fail.
	_, _ = store.sweeper.AddFunc("@every 1m", store.sweep)
	store.sweeper.Start()

	return store
}

func (s *MemoryStore) Create(_ context.Context, sess *models.PanelSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.PanelSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *models.PanelSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(DefaultTTL)
	s.sessions[sess.ID] = sess

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)

	return nil
}

func (s *MemoryStore) Close() error {
	s.sweeper.Stop()

	return nil
}

func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
