// Package gate implements the phase progression state machine: which
// transitions between phases are permitted, the pending summaries shown to
// supervisors, and the reset semantics of privileged rewinds.
package gate

import (
	"errors"
	"fmt"
)

var (
	// ErrPhaseNotFound indicates the requested phase is not in the catalog.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrBackwardTransition indicates a plain panel click tried to move
	// backward. Rewinds are a separate privileged operation.
	ErrBackwardTransition = errors.New("backward transition requires the product edit flow")

	// ErrSupervisorRequired indicates a privileged operation was attempted
	// by a non-supervisor actor.
	ErrSupervisorRequired = errors.New("operation requires a supervisor role")

	// ErrNoPendingPlan indicates a confirm or cancel arrived with no
	// transition awaiting confirmation.
	ErrNoPendingPlan = errors.New("no transition awaiting confirmation")

	// ErrPlanMismatch indicates the confirmation referenced a stale plan.
	ErrPlanMismatch = errors.New("transition plan does not match the pending one")

	// ErrNotBackward indicates a rewind targeted the active phase or a
	// later one.
	ErrNotBackward = errors.New("rewind must target an earlier phase")
)

// BlockedError rejects a non-supervisor forward transition, naming the
// phase that blocks it.
type BlockedError struct {
	PhaseID   int
	PhaseName string
	Reason    string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("phase %q blocks the transition: %s", e.PhaseName, e.Reason)
}

// IsBlocked checks whether an error is a forward-gate rejection.
func IsBlocked(err error) bool {
	var blocked *BlockedError

	return errors.As(err, &blocked)
}

// IsPhaseNotFound checks whether an error is a missing-phase error.
func IsPhaseNotFound(err error) bool {
	return errors.Is(err, ErrPhaseNotFound)
}
