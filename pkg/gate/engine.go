package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvelasco/fasegate/pkg/authz"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/events"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/otelhelper"
	"github.com/nvelasco/fasegate/pkg/session"
)

// Catalog is the phase source the engine evaluates against.
type Catalog interface {
	ListPhases(ctx context.Context) ([]models.Phase, error)
}

// Ledger is the completion-record surface the engine needs: fresh snapshots
// for gating and resets for rewinds.
type Ledger interface {
	Snapshot(ctx context.Context, productID, phaseID int) ([]models.Task, map[int]models.CompletionRecord, error)
	ResetPhase(ctx context.Context, productID, phaseID int) error
}

// Engine decides phase transitions. States are the catalog's phase ids in
// ascending-id order; the current state is the session's active phase.
type Engine struct {
	catalog  Catalog
	ledger   Ledger
	sessions session.Store
	auth     authz.Authorizer
	bus      eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates a gate engine.
func New(cat Catalog, led Ledger, sessions session.Store, auth authz.Authorizer, bus eventbus.EventBus, logger *slog.Logger) *Engine {
	return &Engine{
		catalog:  cat,
		ledger:   led,
		sessions: sessions,
		auth:     auth,
		bus:      bus,
		tracer:   otel.Tracer("fasegate/gate"),
		logger:   logger.With("module", "gate"),
	}
}

// Result is the outcome of a transition request.
type Result struct {
	Moved                bool                   `json:"moved"`
	RequiresConfirmation bool                   `json:"requires_confirmation"`
	Plan                 *models.TransitionPlan `json:"plan,omitempty"`
	Message              string                 `json:"message,omitempty"`
}

// RequestTransition evaluates a panel transition request from the session's
// active phase to the target phase.
//
// Same-phase requests are no-ops. Backward requests are rejected: rewinds
// go through the privileged Rewind operation. Forward requests walk every
// phase below the target; a non-supervisor is blocked by the first phase
// that is incomplete or not yet notified/validated, while a supervisor
// accumulates pending reasons into a plan that must be explicitly confirmed
// before the move happens.
func (e *Engine) RequestTransition(ctx context.Context, sess *models.PanelSession, toPhaseID int) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "gate.transition",
		attribute.Int(otelhelper.ProductIDKey, sess.ProductID),
		attribute.Int(otelhelper.PhaseIDKey, toPhaseID),
		attribute.String(otelhelper.SessionIDKey, sess.ID),
	)
	defer span.End()

	result, err := e.requestTransition(ctx, sess, toPhaseID)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func (e *Engine) requestTransition(ctx context.Context, sess *models.PanelSession, toPhaseID int) (*Result, error) {
	if toPhaseID == sess.ActivePhaseID {
		return &Result{Moved: false, Message: "phase is already active"}, nil
	}

	phases, err := e.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}

	toIdx := models.PhaseIndex(phases, toPhaseID)
	if toIdx < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrPhaseNotFound, toPhaseID)
	}

	fromIdx := models.PhaseIndex(phases, sess.ActivePhaseID)
	if fromIdx < 0 {
		return nil, fmt.Errorf("%w: active phase id %d", ErrPhaseNotFound, sess.ActivePhaseID)
	}

	if toIdx < fromIdx {
		return nil, ErrBackwardTransition
	}

	if err := e.auth.CanUpdate(ctx); err != nil {
		return nil, err
	}

	reasons, err := e.collectForwardReasons(ctx, sess, phases[:toIdx])
	if err != nil {
		return nil, err
	}

	if len(reasons) > 0 {
		plan := &models.TransitionPlan{
			ID:          uuid.New().String(),
			FromPhaseID: sess.ActivePhaseID,
			ToPhaseID:   toPhaseID,
			Reasons:     reasons,
			CreatedAt:   time.Now().UTC(),
		}

		sess.PendingPlan = plan
		if err := e.sessions.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to persist pending plan: %w", err)
		}

		return &Result{RequiresConfirmation: true, Plan: plan}, nil
	}

	if err := e.apply(ctx, sess, sess.ActivePhaseID, toPhaseID); err != nil {
		return nil, err
	}

	return &Result{Moved: true}, nil
}

// collectForwardReasons checks every phase below the target against a fresh
// ledger snapshot. For non-supervisors the first violation blocks; for
// supervisors each violation becomes a pending reason.
func (e *Engine) collectForwardReasons(ctx context.Context, sess *models.PanelSession, below []models.Phase) ([]string, error) {
	var reasons []string

	for _, phase := range below {
		tasks, records, err := e.ledger.Snapshot(ctx, sess.ProductID, phase.ID)
		if err != nil {
			return nil, err
		}

		if !ledger.IsPhaseFullyCompleted(tasks, records) {
			pending := ledger.PendingCount(tasks, records)

			if !sess.Actor.Supervisor {
				return nil, &BlockedError{
					PhaseID:   phase.ID,
					PhaseName: phase.Name,
					Reason:    fmt.Sprintf("%d task(s) pending completion", pending),
				}
			}

			reasons = append(reasons, fmt.Sprintf("phase %q has %d pending task(s)", phase.Name, pending))
		}

		if !ledger.IsPhaseValidatedBySupervisor(tasks, records) || !sess.EmailSentFor(phase.ID) {
			if !sess.Actor.Supervisor {
				return nil, &BlockedError{
					PhaseID:   phase.ID,
					PhaseName: phase.Name,
					Reason:    "supervisor notification has not been sent for this phase",
				}
			}

			reasons = append(reasons, fmt.Sprintf("phase %q is missing its supervisor notification", phase.Name))
		}
	}

	return reasons, nil
}

// Confirm applies a supervisor transition that accumulated pending reasons.
// The plan id must match the session's pending plan.
func (e *Engine) Confirm(ctx context.Context, sess *models.PanelSession, planID string) (*Result, error) {
	if err := e.auth.CanUpdate(ctx); err != nil {
		return nil, err
	}

	plan := sess.PendingPlan
	if plan == nil {
		return nil, ErrNoPendingPlan
	}

	if plan.ID != planID {
		return nil, fmt.Errorf("%w: got %s", ErrPlanMismatch, planID)
	}

	if err := e.apply(ctx, sess, plan.FromPhaseID, plan.ToPhaseID); err != nil {
		return nil, err
	}

	return &Result{Moved: true}, nil
}

// Cancel abandons the pending transition plan with no state change.
func (e *Engine) Cancel(ctx context.Context, sess *models.PanelSession) error {
	if sess.PendingPlan == nil {
		return nil
	}

	sess.PendingPlan = nil

	if err := e.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to discard pending plan: %w", err)
	}

	return nil
}

// Rewind is the privileged supervisor operation that moves a product back
// to an earlier phase. The destination phase's records are reset to N/N and
// its session notification flag cleared, so the phase must be worked and
// notified again.
func (e *Engine) Rewind(ctx context.Context, sess *models.PanelSession, toPhaseID int) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "gate.rewind",
		attribute.Int(otelhelper.ProductIDKey, sess.ProductID),
		attribute.Int(otelhelper.PhaseIDKey, toPhaseID),
		attribute.String(otelhelper.SessionIDKey, sess.ID),
	)
	defer span.End()

	if err := e.rewind(ctx, sess, toPhaseID); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	return nil
}

func (e *Engine) rewind(ctx context.Context, sess *models.PanelSession, toPhaseID int) error {
	if err := e.auth.CanUpdate(ctx); err != nil {
		return err
	}

	if !sess.Actor.Supervisor {
		return ErrSupervisorRequired
	}

	phases, err := e.catalog.ListPhases(ctx)
	if err != nil {
		return err
	}

	toIdx := models.PhaseIndex(phases, toPhaseID)
	if toIdx < 0 {
		return fmt.Errorf("%w: id %d", ErrPhaseNotFound, toPhaseID)
	}

	fromIdx := models.PhaseIndex(phases, sess.ActivePhaseID)
	if fromIdx < 0 {
		return fmt.Errorf("%w: active phase id %d", ErrPhaseNotFound, sess.ActivePhaseID)
	}

	if toIdx >= fromIdx {
		return ErrNotBackward
	}

	if err := e.ledger.ResetPhase(ctx, sess.ProductID, toPhaseID); err != nil {
		return err
	}

	fromPhaseID := sess.ActivePhaseID
	sess.ClearEmailSent(toPhaseID)
	sess.ActivePhaseID = toPhaseID
	sess.ErrorMessage = ""
	sess.PendingPlan = nil

	if err := e.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist rewind: %w", err)
	}

	e.publish(ctx, sess, events.PhaseRewound{
		BaseEvent:   e.baseEvent(events.PhaseRewoundEvent, sess),
		FromPhaseID: fromPhaseID,
		ToPhaseID:   toPhaseID,
	})

	return nil
}

// RewindAll resets every phase of the product and returns the session to
// the first phase. Used by the product edit flow to restart a workflow from
// scratch.
func (e *Engine) RewindAll(ctx context.Context, sess *models.PanelSession) error {
	if err := e.auth.CanUpdate(ctx); err != nil {
		return err
	}

	if !sess.Actor.Supervisor {
		return ErrSupervisorRequired
	}

	phases, err := e.catalog.ListPhases(ctx)
	if err != nil {
		return err
	}

	if len(phases) == 0 {
		return fmt.Errorf("%w: catalog is empty", ErrPhaseNotFound)
	}

	for _, phase := range phases {
		if err := e.ledger.ResetPhase(ctx, sess.ProductID, phase.ID); err != nil {
			return err
		}

		sess.ClearEmailSent(phase.ID)
	}

	fromPhaseID := sess.ActivePhaseID
	sess.ActivePhaseID = phases[0].ID
	sess.ErrorMessage = ""
	sess.PendingPlan = nil

	if err := e.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist rewind: %w", err)
	}

	e.publish(ctx, sess, events.PhaseRewound{
		BaseEvent:   e.baseEvent(events.PhaseRewoundEvent, sess),
		FromPhaseID: fromPhaseID,
		ToPhaseID:   phases[0].ID,
	})

	return nil
}

func (e *Engine) apply(ctx context.Context, sess *models.PanelSession, fromPhaseID, toPhaseID int) error {
	sess.ActivePhaseID = toPhaseID
	sess.ErrorMessage = ""
	sess.PendingPlan = nil

	if err := e.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}

	e.publish(ctx, sess, events.PhaseAdvanced{
		BaseEvent:   e.baseEvent(events.PhaseAdvancedEvent, sess),
		FromPhaseID: fromPhaseID,
		ToPhaseID:   toPhaseID,
	})

	return nil
}

func (e *Engine) baseEvent(eventType events.EventType, sess *models.PanelSession) events.BaseEvent {
	return events.BaseEvent{
		ID:        e.bus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sess.ID,
		ProductID: sess.ProductID,
	}
}

func (e *Engine) publish(ctx context.Context, sess *models.PanelSession, event eventbus.Event) {
	err := e.bus.Publish(ctx, strconv.Itoa(sess.ProductID), event)
	if err != nil {
		// Event delivery is best effort; the transition already happened.
		e.logger.ErrorContext(ctx, "failed to publish progression event",
			"event_type", event.GetType(), "error", err)
	}
}
