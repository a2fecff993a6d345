package models

import "time"

// TransitionPlan is a supervisor forward-transition awaiting explicit
// confirmation. It carries the pending reasons accumulated across the
// phases below the target; confirming applies the move, cancelling discards
// the plan with no state change.
type TransitionPlan struct {
	ID          string    `json:"id"`
	FromPhaseID int       `json:"from_phase_id"`
	ToPhaseID   int       `json:"to_phase_id"`
	Reasons     []string  `json:"reasons"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecipientPick is a suspended notification run waiting for the operator to
// choose one of several configured supervisor addresses. There is no
// timeout; cancelling abandons the run with no side effects.
type RecipientPick struct {
	PhaseID    int       `json:"phase_id"`
	Candidates []string  `json:"candidates"`
	CreatedAt  time.Time `json:"created_at"`
}

// PanelSession is the per-session state of one product's phase panel. It is
// created when the panel opens and discarded when it closes; nothing in it
// is authoritative, the ledger and catalog are re-consulted before critical
// operations.
type PanelSession struct {
	ID            string           `json:"id"`
	ProductID     int              `json:"product_id"`
	Actor         Actor            `json:"actor"`
	ActivePhaseID int              `json:"active_phase_id"`
	EmailSent     map[int]bool     `json:"email_sent_by_phase"`
	PendingPlan   *TransitionPlan  `json:"pending_plan,omitempty"`
	PendingPick   *RecipientPick   `json:"pending_pick,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
}

// EmailSentFor reports the session-local notification flag for a phase.
func (s *PanelSession) EmailSentFor(phaseID int) bool {
	if s.EmailSent == nil {
		return false
	}

	return s.EmailSent[phaseID]
}

// MarkEmailSent records that the notification for a phase went out during
// this session.
func (s *PanelSession) MarkEmailSent(phaseID int) {
	if s.EmailSent == nil {
		s.EmailSent = make(map[int]bool)
	}

	s.EmailSent[phaseID] = true
}

// ClearEmailSent drops the notification flag for a phase. Called on rewind
// so the phase must be notified again before forward movement.
func (s *PanelSession) ClearEmailSent(phaseID int) {
	delete(s.EmailSent, phaseID)
}
