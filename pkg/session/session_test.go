package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/session"
)

func newStore(t *testing.T) *session.MemoryStore {
	t.Helper()

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewPanelSession_Defaults(t *testing.T) {
	actor := models.Actor{UserID: 7, RoleActive: true}
	sess := session.NewPanelSession(42, actor, 1)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 42, sess.ProductID)
	assert.Equal(t, actor, sess.Actor)
	assert.Equal(t, 1, sess.ActivePhaseID)
	assert.NotNil(t, sess.EmailSent)
	assert.Nil(t, sess.PendingPlan)
	assert.Nil(t, sess.PendingPick)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := session.NewPanelSession(42, models.Actor{UserID: 7, RoleActive: true}, 1)
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	got.ActivePhaseID = 2
	require.NoError(t, store.Save(ctx, got))

	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ActivePhaseID)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.True(t, session.IsNotFound(err))
}

func TestMemoryStore_GetUnknownID(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_ExpiredSessionIsGone(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := session.NewPanelSession(42, models.Actor{UserID: 7, RoleActive: true}, 1)
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	_, err := store.Get(ctx, sess.ID)
	assert.True(t, session.IsNotFound(err))
}

func TestMemoryStore_SaveExtendsDeadline(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := session.NewPanelSession(42, models.Actor{UserID: 7, RoleActive: true}, 1)
	require.NoError(t, store.Create(ctx, sess))

	before := sess.ExpiresAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Save(ctx, sess))

	assert.True(t, sess.ExpiresAt.After(before))
	assert.True(t, sess.UpdatedAt.After(sess.CreatedAt))
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := session.NewRedisStore(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}
