package gate_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/channels/gochannel"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/gate"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/persistence/memory"
	"github.com/nvelasco/fasegate/pkg/session"
)

type fakeCatalog struct {
	phases []models.Phase
	tasks  map[int][]models.Task
}

func (f *fakeCatalog) ListPhases(context.Context) ([]models.Phase, error) {
	return models.SortPhases(f.phases), nil
}

func (f *fakeCatalog) Tasks(_ context.Context, phaseID int) ([]models.Task, error) {
	return f.tasks[phaseID], nil
}

type allowAll struct{}

func (allowAll) CanView(context.Context) error   { return nil }
func (allowAll) CanUpdate(context.Context) error { return nil }

type testEnv struct {
	engine   *gate.Engine
	ledger   *ledger.Ledger
	store    *memory.Store
	sessions session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat := &fakeCatalog{
		phases: []models.Phase{
			{ID: 2, Name: "Producción"},
			{ID: 1, Name: "Diseño"},
			{ID: 3, Name: "Entrega"},
		},
		tasks: map[int][]models.Task{
			1: {{ID: 100, PhaseID: 1, Name: "Boceto"}},
			2: {{ID: 200, PhaseID: 2, Name: "Montaje"}},
			3: {},
		},
	}

	store := memory.NewStore()
	led := ledger.New(store, cat, allowAll{}, slog.Default())

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	sessions := session.NewMemoryStore()

	t.Cleanup(func() {
		_ = sessions.Close()
		_ = bus.Close()
	})

	return &testEnv{
		engine:   gate.New(cat, led, sessions, allowAll{}, bus, slog.Default()),
		ledger:   led,
		store:    store,
		sessions: sessions,
	}
}

func newSession(t *testing.T, env *testEnv, supervisor bool, activePhaseID int) *models.PanelSession {
	t.Helper()

	actor := models.Actor{UserID: 7, RoleActive: true, Supervisor: supervisor}
	sess := session.NewPanelSession(42, actor, activePhaseID)
	require.NoError(t, env.sessions.Create(context.Background(), sess))

	return sess
}

func completePhase(t *testing.T, env *testEnv, phaseID int, taskIDs ...int) {
	t.Helper()

	ctx := context.Background()

	for _, taskID := range taskIDs {
		_, err := env.ledger.SetCompleted(ctx, 42, phaseID, taskID, true, 7)
		require.NoError(t, err)
	}
}

func validatePhase(t *testing.T, env *testEnv, phaseID int) {
	t.Helper()

	ctx := context.Background()

	records, err := env.ledger.Records(ctx, 42, phaseID)
	require.NoError(t, err)

	all := make([]models.CompletionRecord, 0, len(records))
	for _, record := range records {
		all = append(all, record)
	}

	require.NoError(t, env.ledger.SetAllValidated(ctx, all))
}

func TestRequestTransition_SamePhaseIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	result, err := env.engine.RequestTransition(context.Background(), sess, 1)
	require.NoError(t, err)
	assert.False(t, result.Moved)
	assert.NotEmpty(t, result.Message)
}

func TestRequestTransition_UnknownPhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	_, err := env.engine.RequestTransition(context.Background(), sess, 99)
	assert.True(t, gate.IsPhaseNotFound(err))
}

func TestRequestTransition_BackwardRejected(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 2)

	_, err := env.engine.RequestTransition(context.Background(), sess, 1)
	assert.ErrorIs(t, err, gate.ErrBackwardTransition)
}

func TestRequestTransition_BlockedOnIncompletePhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	_, err := env.engine.RequestTransition(context.Background(), sess, 2)
	require.Error(t, err)
	assert.True(t, gate.IsBlocked(err))

	var blocked *gate.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 1, blocked.PhaseID)
}

func TestRequestTransition_BlockedWithoutNotification(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	completePhase(t, env, 1, 100)

	_, err := env.engine.RequestTransition(context.Background(), sess, 2)
	assert.True(t, gate.IsBlocked(err), "completion alone is not enough without the notification")
}

func TestRequestTransition_ForwardAfterNotification(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	completePhase(t, env, 1, 100)
	validatePhase(t, env, 1)
	sess.MarkEmailSent(1)

	result, err := env.engine.RequestTransition(context.Background(), sess, 2)
	require.NoError(t, err)
	assert.True(t, result.Moved)
	assert.Equal(t, 2, sess.ActivePhaseID)
}

func TestRequestTransition_JumpBlockedByIntermediatePhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 1)

	// Phase 1 is fully done and notified, but phase 2 in between is not.
	completePhase(t, env, 1, 100)
	validatePhase(t, env, 1)
	sess.MarkEmailSent(1)

	_, err := env.engine.RequestTransition(context.Background(), sess, 3)
	require.Error(t, err)

	var blocked *gate.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 2, blocked.PhaseID)
	assert.Equal(t, 1, sess.ActivePhaseID, "a blocked jump leaves the session where it was")
}

func TestConfirm_JumpPreservesIntermediatePhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)
	ctx := context.Background()

	completePhase(t, env, 1, 100)
	validatePhase(t, env, 1)
	sess.MarkEmailSent(1)
	completePhase(t, env, 2, 200)

	result, err := env.engine.RequestTransition(ctx, sess, 3)
	require.NoError(t, err)
	require.True(t, result.RequiresConfirmation)
	require.NotNil(t, result.Plan)

	confirmed, err := env.engine.Confirm(ctx, sess, result.Plan.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Moved)
	assert.Equal(t, 3, sess.ActivePhaseID)

	// The override skips phase 2; its records stay exactly as they were.
	records, err := env.ledger.Records(ctx, 42, 2)
	require.NoError(t, err)
	assert.True(t, records[200].Completed)
	assert.False(t, records[200].Validated)
}

func TestRequestTransition_SupervisorGetsPlan(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)

	result, err := env.engine.RequestTransition(context.Background(), sess, 2)
	require.NoError(t, err)
	assert.False(t, result.Moved)
	assert.True(t, result.RequiresConfirmation)
	require.NotNil(t, result.Plan)
	assert.NotEmpty(t, result.Plan.Reasons)
	assert.Equal(t, result.Plan, sess.PendingPlan)
}

func TestConfirm_AppliesWithoutResettingRecords(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)
	ctx := context.Background()

	// Partially worked phase: the override must leave it untouched.
	completePhase(t, env, 1, 100)

	result, err := env.engine.RequestTransition(ctx, sess, 2)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)

	confirmed, err := env.engine.Confirm(ctx, sess, result.Plan.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Moved)
	assert.Equal(t, 2, sess.ActivePhaseID)
	assert.Nil(t, sess.PendingPlan)

	records, err := env.ledger.Records(ctx, 42, 1)
	require.NoError(t, err)
	assert.True(t, records[100].Completed, "supervisor override must not reset completion flags")
}

func TestConfirm_PlanMismatch(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)
	ctx := context.Background()

	_, err := env.engine.RequestTransition(ctx, sess, 2)
	require.NoError(t, err)

	_, err = env.engine.Confirm(ctx, sess, "stale-plan-id")
	assert.ErrorIs(t, err, gate.ErrPlanMismatch)
}

func TestConfirm_NoPendingPlan(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)

	_, err := env.engine.Confirm(context.Background(), sess, "whatever")
	assert.ErrorIs(t, err, gate.ErrNoPendingPlan)
}

func TestCancel_DiscardsPlan(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)
	ctx := context.Background()

	_, err := env.engine.RequestTransition(ctx, sess, 2)
	require.NoError(t, err)
	require.NotNil(t, sess.PendingPlan)

	require.NoError(t, env.engine.Cancel(ctx, sess))
	assert.Nil(t, sess.PendingPlan)
	assert.Equal(t, 1, sess.ActivePhaseID)
}

func TestRewind_RequiresSupervisor(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, false, 2)

	err := env.engine.Rewind(context.Background(), sess, 1)
	assert.ErrorIs(t, err, gate.ErrSupervisorRequired)
}

func TestRewind_ForwardRejected(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 1)

	err := env.engine.Rewind(context.Background(), sess, 2)
	assert.ErrorIs(t, err, gate.ErrNotBackward)
}

func TestRewind_ResetsDestinationPhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 2)
	ctx := context.Background()

	completePhase(t, env, 1, 100)
	validatePhase(t, env, 1)
	sess.MarkEmailSent(1)

	require.NoError(t, env.engine.Rewind(ctx, sess, 1))

	assert.Equal(t, 1, sess.ActivePhaseID)
	assert.False(t, sess.EmailSentFor(1), "rewind clears the notification flag")

	records, err := env.ledger.Records(ctx, 42, 1)
	require.NoError(t, err)

	for _, record := range records {
		assert.False(t, record.Completed)
		assert.False(t, record.Validated)
	}
}

func TestRewindAll_ReturnsToFirstPhase(t *testing.T) {
	env := newTestEnv(t)
	sess := newSession(t, env, true, 3)
	ctx := context.Background()

	completePhase(t, env, 1, 100)
	completePhase(t, env, 2, 200)
	sess.MarkEmailSent(1)
	sess.MarkEmailSent(2)

	require.NoError(t, env.engine.RewindAll(ctx, sess))

	assert.Equal(t, 1, sess.ActivePhaseID)
	assert.False(t, sess.EmailSentFor(1))
	assert.False(t, sess.EmailSentFor(2))

	for _, phaseID := range []int{1, 2} {
		records, err := env.ledger.Records(ctx, 42, phaseID)
		require.NoError(t, err)

		for _, record := range records {
			assert.False(t, record.Completed)
		}
	}
}
