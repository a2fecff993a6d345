package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nvelasco/fasegate/internal/maildrop"
	"github.com/nvelasco/fasegate/pkg/authz"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/events"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/otelhelper"
	"github.com/nvelasco/fasegate/pkg/session"
)

// Catalog is the phase source the protocol consults.
type Catalog interface {
	ListPhases(ctx context.Context) ([]models.Phase, error)
}

// Ledger is the completion-record surface the protocol needs.
type Ledger interface {
	Snapshot(ctx context.Context, productID, phaseID int) ([]models.Task, map[int]models.CompletionRecord, error)
	SetAllValidated(ctx context.Context, records []models.CompletionRecord) error
}

// ProductAPI is the external product endpoint.
type ProductAPI interface {
	Product(ctx context.Context, id int) (*models.Product, error)
	UpdateProductStatus(ctx context.Context, id, statusID int) error
}

// StatusAPI is the external status catalog endpoint.
type StatusAPI interface {
	Statuses(ctx context.Context) ([]models.ProductStatus, error)
}

// Outcome classifies a protocol run.
type Outcome string

const (
	// OutcomeSent: mail handed off, status advanced, phase validated and
	// the session moved to the next phase.
	OutcomeSent Outcome = "sent"

	// OutcomeAlreadySent: the session flag and a fresh server check both
	// say this phase was already notified. Informational no-op.
	OutcomeAlreadySent Outcome = "already_sent"

	// OutcomeTerminal: the active phase is the last one; nothing to
	// advance to and no status mutation occurs.
	OutcomeTerminal Outcome = "terminal"

	// OutcomePendingRecipient: several supervisor addresses are
	// configured; the run is suspended until the operator picks one.
	OutcomePendingRecipient Outcome = "pending_recipient"
)

// Result is the outcome of one protocol run.
type Result struct {
	Outcome     Outcome  `json:"outcome"`
	Candidates  []string `json:"candidates,omitempty"`
	NextPhaseID int      `json:"next_phase_id,omitempty"`
	StatusID    int      `json:"status_id,omitempty"`
	Recipient   string   `json:"recipient,omitempty"`
}

// Protocol orchestrates the supervisor notification for a session's active
// phase: verify completion, resolve the next phase and its matching product
// status, hand the message to the mail system, advance the product status,
// then validate the ledger records and move the session forward.
type Protocol struct {
	catalog    Catalog
	ledger     Ledger
	products   ProductAPI
	statuses   StatusAPI
	composer   maildrop.Composer
	recipients []string
	sessions   session.Store
	auth       authz.Authorizer
	bus        eventbus.EventBus
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New creates the notification protocol. supervisorEmails is the raw
// configured address list (semicolon/comma separated), injected here and
// nowhere else.
func New(
	cat Catalog,
	led Ledger,
	products ProductAPI,
	statuses StatusAPI,
	composer maildrop.Composer,
	supervisorEmails string,
	sessions session.Store,
	auth authz.Authorizer,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Protocol {
	return &Protocol{
		catalog:    cat,
		ledger:     led,
		products:   products,
		statuses:   statuses,
		composer:   composer,
		recipients: ParseRecipients(supervisorEmails),
		sessions:   sessions,
		auth:       auth,
		bus:        bus,
		tracer:     otel.Tracer("fasegate/notify"),
		logger:     logger.With("module", "notify"),
	}
}

// Run executes the protocol for the session's active phase. An empty
// chosenRecipient means no choice was made yet; when several addresses are
// configured the run suspends with OutcomePendingRecipient and is resumed
// by calling Run again with the chosen address.
func (p *Protocol) Run(ctx context.Context, sess *models.PanelSession, chosenRecipient string) (*Result, error) {
	if err := p.auth.CanUpdate(ctx); err != nil {
		return nil, err
	}

	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "notify.run",
		attribute.Int(otelhelper.ProductIDKey, sess.ProductID),
		attribute.Int(otelhelper.PhaseIDKey, sess.ActivePhaseID),
		attribute.String(otelhelper.SessionIDKey, sess.ID),
	)
	defer span.End()

	result, err := p.run(ctx, sess, chosenRecipient)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return result, err
}

func (p *Protocol) run(ctx context.Context, sess *models.PanelSession, chosenRecipient string) (*Result, error) {
	phases, err := p.catalog.ListPhases(ctx)
	if err != nil {
		return nil, err
	}

	activeIdx := models.PhaseIndex(phases, sess.ActivePhaseID)
	if activeIdx < 0 {
		return nil, fmt.Errorf("%w: active phase id %d", ErrPhaseNotFound, sess.ActivePhaseID)
	}

	activePhase := phases[activeIdx]

	// Always re-verify against the ledger; the session cache may be stale.
	tasks, records, err := p.ledger.Snapshot(ctx, sess.ProductID, activePhase.ID)
	if err != nil {
		return nil, err
	}

	if !ledger.IsPhaseFullyCompleted(tasks, records) {
		return nil, fmt.Errorf("%w: phase %q", ErrPhaseIncomplete, activePhase.Name)
	}

	if sess.EmailSentFor(activePhase.ID) && ledger.IsPhaseValidatedBySupervisor(tasks, records) {
		return &Result{Outcome: OutcomeAlreadySent}, nil
	}

	if activeIdx+1 >= len(phases) {
		p.logger.InfoContext(ctx, "terminal phase completed, no status to advance to",
			"product_id", sess.ProductID, "phase_id", activePhase.ID)

		return &Result{Outcome: OutcomeTerminal}, nil
	}

	nextPhase := phases[activeIdx+1]

	statuses, err := p.statuses.Statuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load status catalog: %w", err)
	}

	// Fail closed: without a matched status the product is never advanced.
	matched, ok := MatchStatus(nextPhase, statuses)
	if !ok {
		return nil, fmt.Errorf("%w: next phase %q", ErrNoMatchingStatus, nextPhase.Name)
	}

	recipient, pending, err := p.resolveRecipient(ctx, sess, activePhase, chosenRecipient)
	if err != nil {
		return nil, err
	}

	if pending != nil {
		return pending, nil
	}

	product, err := p.products.Product(ctx, sess.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	taskNames := ledger.CompletedTaskNames(tasks, records)

	msg := maildrop.Message{
		To:            recipient,
		ProductName:   product.Name,
		PhaseName:     activePhase.Name,
		TaskNames:     taskNames,
		NextPhaseName: nextPhase.Name,
		SentAt:        time.Now().UTC(),
	}

	// Hand-off failure is a hard stop: nothing has been mutated yet.
	if err := p.composer.Compose(ctx, msg); err != nil {
		return nil, err
	}

	sess.PendingPick = nil

	p.publish(ctx, sess, events.PhaseNotification{
		BaseEvent: p.baseEvent(events.PhaseNotificationEvent, sess),
		PhaseID:   activePhase.ID,
		PhaseName: activePhase.Name,
		Recipient: recipient,
		TaskNames: taskNames,
	})

	// The mail is out. From here on failures surface but never undo it.
	if err := p.products.UpdateProductStatus(ctx, sess.ProductID, matched.ID); err != nil {
		if saveErr := p.sessions.Save(ctx, sess); saveErr != nil {
			p.logger.ErrorContext(ctx, "failed to persist session after status failure", "error", saveErr)
		}

		p.logger.ErrorContext(ctx, "notification sent but status update failed, needs operator follow-up",
			"product_id", sess.ProductID, "status_id", matched.ID, "error", err)

		return nil, &StatusUpdateError{ProductID: sess.ProductID, StatusID: matched.ID, Err: err}
	}

	p.publish(ctx, sess, events.ProductStatusUpdated{
		BaseEvent:  p.baseEvent(events.ProductStatusUpdatedEvent, sess),
		StatusID:   matched.ID,
		StatusName: matched.Name,
		PhaseID:    activePhase.ID,
	})

	if err := p.ledger.SetAllValidated(ctx, recordsSlice(records)); err != nil {
		return nil, err
	}

	fromPhaseID := sess.ActivePhaseID
	sess.MarkEmailSent(activePhase.ID)
	sess.ActivePhaseID = nextPhase.ID
	sess.ErrorMessage = ""

	if err := p.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session advance: %w", err)
	}

	p.publish(ctx, sess, events.PhaseAdvanced{
		BaseEvent:   p.baseEvent(events.PhaseAdvancedEvent, sess),
		FromPhaseID: fromPhaseID,
		ToPhaseID:   nextPhase.ID,
	})

	return &Result{
		Outcome:     OutcomeSent,
		NextPhaseID: nextPhase.ID,
		StatusID:    matched.ID,
		Recipient:   recipient,
	}, nil
}

// resolveRecipient implements the recipient-selection suspension. With one
// configured address the run proceeds directly; with several and no choice
// yet the run suspends. A choice is only valid while a pick is suspended,
// and must be one of its candidates.
func (p *Protocol) resolveRecipient(ctx context.Context, sess *models.PanelSession, phase models.Phase, chosen string) (string, *Result, error) {
	if chosen != "" {
		if sess.PendingPick == nil {
			return "", nil, ErrNoPendingPick
		}

		if !slices.Contains(sess.PendingPick.Candidates, chosen) {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownRecipient, chosen)
		}

		return chosen, nil, nil
	}

	switch {
	case len(p.recipients) == 0:
		return "", nil, ErrNoRecipients

	case len(p.recipients) == 1:
		return p.recipients[0], nil, nil

	default:
		sess.PendingPick = &models.RecipientPick{
			PhaseID:    phase.ID,
			Candidates: slices.Clone(p.recipients),
			CreatedAt:  time.Now().UTC(),
		}

		if err := p.sessions.Save(ctx, sess); err != nil {
			return "", nil, fmt.Errorf("failed to persist pending recipient pick: %w", err)
		}

		return "", &Result{
			Outcome:    OutcomePendingRecipient,
			Candidates: slices.Clone(p.recipients),
		}, nil
	}
}

// Cancel abandons a suspended recipient pick with no side effects.
func (p *Protocol) Cancel(ctx context.Context, sess *models.PanelSession) error {
	if sess.PendingPick == nil {
		return nil
	}

	sess.PendingPick = nil

	if err := p.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to discard pending pick: %w", err)
	}

	return nil
}

func (p *Protocol) baseEvent(eventType events.EventType, sess *models.PanelSession) events.BaseEvent {
	return events.BaseEvent{
		ID:        p.bus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sess.ID,
		ProductID: sess.ProductID,
	}
}

func (p *Protocol) publish(ctx context.Context, sess *models.PanelSession, event eventbus.Event) {
	err := p.bus.Publish(ctx, strconv.Itoa(sess.ProductID), event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish notification event",
			"event_type", event.GetType(), "error", err)
	}
}

func recordsSlice(records map[int]models.CompletionRecord) []models.CompletionRecord {
	out := make([]models.CompletionRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record)
	}

	return out
}
