package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nvelasco/fasegate/internal/maildrop"
	"github.com/nvelasco/fasegate/pkg/authz"
	"github.com/nvelasco/fasegate/pkg/catalog"
	"github.com/nvelasco/fasegate/pkg/clients"
	"github.com/nvelasco/fasegate/pkg/eventbus"
	"github.com/nvelasco/fasegate/pkg/events"
	"github.com/nvelasco/fasegate/pkg/gate"
	"github.com/nvelasco/fasegate/pkg/ledger"
	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/notify"
	"github.com/nvelasco/fasegate/pkg/session"
)

// APIHandlers serves the panel endpoints. The progression services are
// assembled per request around the session's authorization gate.
type APIHandlers struct {
	sessions         session.Store
	catalog          *catalog.Catalog
	store            ledger.Store
	collaborator     *clients.Client
	composer         maildrop.Composer
	bus              eventbus.EventBus
	supervisorEmails string
	validator        *validator.Validate
	logger           *slog.Logger
}

func NewAPIHandlers(
	sessions session.Store,
	cat *catalog.Catalog,
	store ledger.Store,
	collaborator *clients.Client,
	composer maildrop.Composer,
	bus eventbus.EventBus,
	supervisorEmails string,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		sessions:         sessions,
		catalog:          cat,
		store:            store,
		collaborator:     collaborator,
		composer:         composer,
		bus:              bus,
		supervisorEmails: supervisorEmails,
		validator:        validator,
		logger:           logger,
	}
}

func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	var req OpenSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor := authz.ResolveActor(c.Context(), h.collaborator, h.logger, req.UserID, req.RoleID)

	auth := h.gateFor(actor)
	if err := auth.CanView(c.Context()); err != nil {
		return handleDomainError(c, err)
	}

	phases, err := h.catalog.ListPhases(c.Context())
	if err != nil {
		return handleDomainError(c, err)
	}

	if len(phases) == 0 {
		return handleDomainError(c, catalog.ErrCatalogUnavailable)
	}

	activePhaseID := req.ActivePhaseID
	if activePhaseID == 0 {
		activePhaseID = phases[0].ID
	} else if models.PhaseIndex(phases, activePhaseID) < 0 {
		return notFound(c, "active phase not found in catalog")
	}

	sess := session.NewPanelSession(req.ProductID, actor, activePhaseID)
	if err := h.sessions.Create(c.Context(), sess); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformSessionResponse(sess))
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(TransformSessionResponse(sess))
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if err := h.sessions.Delete(c.Context(), c.Params("id")); err != nil {
		return handleDomainError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetPhases(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.gateFor(sess.Actor).CanView(c.Context()); err != nil {
		return handleDomainError(c, err)
	}

	phases, err := h.catalog.ListPhases(c.Context())
	if err != nil {
		return handleDomainError(c, err)
	}

	responses := make([]PhaseResponse, 0, len(phases))
	for _, phase := range phases {
		responses = append(responses, PhaseResponse{
			ID:        phase.ID,
			Code:      phase.Code,
			Name:      phase.Name,
			Active:    phase.ID == sess.ActivePhaseID,
			EmailSent: sess.EmailSentFor(phase.ID),
		})
	}

	return c.JSON(responses)
}

func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	phaseID, err := strconv.Atoi(c.Params("phaseId"))
	if err != nil {
		return badRequest(c, "Phase ID must be an integer")
	}

	led := h.ledgerFor(sess.Actor)

	tasks, records, err := led.Snapshot(c.Context(), sess.ProductID, phaseID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(TransformTaskResponses(tasks, records))
}

func (h *APIHandlers) ToggleTask(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	phaseID, err := strconv.Atoi(c.Params("phaseId"))
	if err != nil {
		return badRequest(c, "Phase ID must be an integer")
	}

	taskID, err := strconv.Atoi(c.Params("taskId"))
	if err != nil {
		return badRequest(c, "Task ID must be an integer")
	}

	var req ToggleTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	led := h.ledgerFor(sess.Actor)

	record, err := led.SetCompleted(c.Context(), sess.ProductID, phaseID, taskID, *req.Completed, sess.Actor.UserID)
	if err != nil {
		return h.failSession(c, sess, err)
	}

	h.publishToggle(c, sess, record)

	return c.JSON(TaskResponse{
		ID:        taskID,
		Completed: record.Completed,
		Validated: record.Validated,
		RecordID:  record.ID,
	})
}

func (h *APIHandlers) RequestTransition(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engineFor(sess.Actor).RequestTransition(c.Context(), sess, req.ToPhaseID)
	if err != nil {
		return h.failSession(c, sess, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ConfirmTransition(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	var req ConfirmTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engineFor(sess.Actor).Confirm(c.Context(), sess, req.PlanID)
	if err != nil {
		return h.failSession(c, sess, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CancelTransition(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.engineFor(sess.Actor).Cancel(c.Context(), sess); err != nil {
		return handleDomainError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Rewind(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	var req RewindRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	engine := h.engineFor(sess.Actor)

	if req.All {
		err = engine.RewindAll(c.Context(), sess)
	} else {
		err = engine.Rewind(c.Context(), sess, req.ToPhaseID)
	}

	if err != nil {
		return h.failSession(c, sess, err)
	}

	return c.JSON(TransformSessionResponse(sess))
}

func (h *APIHandlers) Notify(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	result, err := h.protocolFor(sess.Actor).Run(c.Context(), sess, "")
	if err != nil {
		return h.failSession(c, sess, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) PickRecipient(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	var req PickRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.protocolFor(sess.Actor).Run(c.Context(), sess, req.Recipient)
	if err != nil {
		return h.failSession(c, sess, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CancelNotify(c fiber.Ctx) error {
	sess, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.protocolFor(sess.Actor).Cancel(c.Context(), sess); err != nil {
		return handleDomainError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) gateFor(actor models.Actor) *authz.Gate {
	return authz.NewGate(h.collaborator, authz.ScreenPhasePanel, actor.RoleActive)
}

func (h *APIHandlers) ledgerFor(actor models.Actor) *ledger.Ledger {
	return ledger.New(h.store, h.catalog, h.gateFor(actor), h.logger)
}

func (h *APIHandlers) engineFor(actor models.Actor) *gate.Engine {
	return gate.New(h.catalog, h.ledgerFor(actor), h.sessions, h.gateFor(actor), h.bus, h.logger)
}

func (h *APIHandlers) protocolFor(actor models.Actor) *notify.Protocol {
	return notify.New(
		h.catalog,
		h.ledgerFor(actor),
		h.collaborator,
		h.collaborator,
		h.composer,
		h.supervisorEmails,
		h.sessions,
		h.gateFor(actor),
		h.bus,
		h.logger,
	)
}

// failSession records the failure on the session so the panel can show it
// on reload, then maps the error onto a problem response.
func (h *APIHandlers) failSession(c fiber.Ctx, sess *models.PanelSession, err error) error {
	sess.ErrorMessage = err.Error()

	if saveErr := h.sessions.Save(c.Context(), sess); saveErr != nil {
		h.logger.ErrorContext(c.Context(), "failed to persist session error message", "error", saveErr)
	}

	return handleDomainError(c, err)
}

func (h *APIHandlers) publishToggle(c fiber.Ctx, sess *models.PanelSession, record models.CompletionRecord) {
	event := events.TaskToggled{
		BaseEvent: events.BaseEvent{
			ID:        h.bus.GenerateID(),
			Type:      events.TaskToggledEvent,
			Timestamp: time.Now().UTC(),
			SessionID: sess.ID,
			ProductID: sess.ProductID,
		},
		PhaseID:   record.PhaseID,
		TaskID:    record.TaskID,
		Completed: record.Completed,
		UserID:    sess.Actor.UserID,
	}

	if err := h.bus.Publish(c.Context(), strconv.Itoa(sess.ProductID), event); err != nil {
		h.logger.ErrorContext(c.Context(), "failed to publish task toggle event", "error", err)
	}
}
