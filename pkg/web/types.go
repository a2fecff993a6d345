// Package web provides the HTTP handlers and REST endpoints of the phase
// progression panel.
package web

import (
	"time"

	"github.com/nvelasco/fasegate/pkg/models"
)

// OpenSessionRequest represents the request body for opening a panel session.
type OpenSessionRequest struct {
	ProductID     int `json:"product_id"      validate:"required,min=1"`
	UserID        int `json:"user_id"         validate:"required,min=1"`
	RoleID        int `json:"role_id"`
	ActivePhaseID int `json:"active_phase_id"`
}

// ToggleTaskRequest represents the request body for setting a task's
// completion flag. A pointer keeps "false" distinguishable from "absent".
type ToggleTaskRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// TransitionRequest represents the request body for a phase transition.
type TransitionRequest struct {
	ToPhaseID int `json:"to_phase_id" validate:"required,min=1"`
}

// ConfirmTransitionRequest confirms a pending supervisor transition plan.
type ConfirmTransitionRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// RewindRequest represents the request body for the privileged rewind. With
// All set every phase is reset and the session returns to the first phase.
type RewindRequest struct {
	ToPhaseID int  `json:"to_phase_id" validate:"required_without=All,omitempty,min=1"`
	All       bool `json:"all"`
}

// PickRecipientRequest resumes a notification run suspended on recipient
// choice.
type PickRecipientRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
}

// SessionResponse is the session state returned to the panel.
type SessionResponse struct {
	ID            string                 `json:"id"`
	ProductID     int                    `json:"product_id"`
	ActivePhaseID int                    `json:"active_phase_id"`
	UserID        int                    `json:"user_id"`
	RoleName      string                 `json:"role_name,omitempty"`
	Supervisor    bool                   `json:"supervisor"`
	PendingPlan   *models.TransitionPlan `json:"pending_plan,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	ExpiresAt     time.Time              `json:"expires_at"`
}

// TransformSessionResponse maps a panel session onto its API shape.
func TransformSessionResponse(sess *models.PanelSession) SessionResponse {
	return SessionResponse{
		ID:            sess.ID,
		ProductID:     sess.ProductID,
		ActivePhaseID: sess.ActivePhaseID,
		UserID:        sess.Actor.UserID,
		RoleName:      sess.Actor.RoleName,
		Supervisor:    sess.Actor.Supervisor,
		PendingPlan:   sess.PendingPlan,
		ErrorMessage:  sess.ErrorMessage,
		ExpiresAt:     sess.ExpiresAt,
	}
}

// PhaseResponse is one catalog phase plus its notification flag for this
// session.
type PhaseResponse struct {
	ID        int    `json:"id"`
	Code      string `json:"codigo"`
	Name      string `json:"nombre"`
	Active    bool   `json:"active"`
	EmailSent bool   `json:"email_sent"`
}

// TaskResponse is one task of a phase merged with its completion record.
// Tasks without a record read as not completed and not validated.
type TaskResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"nombre"`
	Completed bool   `json:"completed"`
	Validated bool   `json:"validated"`
	RecordID  int    `json:"record_id,omitempty"`
}

// TransformTaskResponses merges tasks with their records in catalog order.
func TransformTaskResponses(tasks []models.Task, records map[int]models.CompletionRecord) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response := TaskResponse{ID: task.ID, Name: task.Name}

		if record, ok := records[task.ID]; ok {
			response.Completed = record.Completed
			response.Validated = record.Validated
			response.RecordID = record.ID
		}

		responses = append(responses, response)
	}

	return responses
}
