// Package notify implements the supervisor notification protocol: the one
// operation that both unblocks forward phase movement and advances the
// product's external status.
package notify

import (
	"errors"
	"fmt"

	"github.com/nvelasco/fasegate/pkg/gate"
)

var (
	// ErrPhaseNotFound re-exports the gate sentinel for callers matching
	// on this package.
	ErrPhaseNotFound = gate.ErrPhaseNotFound

	// ErrPhaseIncomplete indicates not every task of the active phase is
	// completed. The protocol re-verifies against the ledger, not the
	// session cache, before failing with this.
	ErrPhaseIncomplete = errors.New("active phase has incomplete tasks")

	// ErrNoMatchingStatus indicates no status catalog entry matched the
	// next phase. The product's status is never advanced without a match.
	ErrNoMatchingStatus = errors.New("no product status matches the next phase")

	// ErrNoRecipients indicates no supervisor address is configured.
	ErrNoRecipients = errors.New("no supervisor recipients configured")

	// ErrUnknownRecipient indicates the chosen recipient is not one of the
	// candidates offered by the suspended run.
	ErrUnknownRecipient = errors.New("recipient is not a configured candidate")

	// ErrNoPendingPick indicates a recipient choice or cancel arrived with
	// no suspended notification run.
	ErrNoPendingPick = errors.New("no notification awaiting a recipient choice")

	// ErrStatusUpdate indicates the product status write failed after the
	// mail already went out. The mail is not rolled back; the
	// inconsistency window is accepted and logged for operator follow-up.
	ErrStatusUpdate = errors.New("product status update failed")
)

// StatusUpdateError carries the context of a failed status advance.
type StatusUpdateError struct {
	ProductID int
	StatusID  int
	Err       error
}

func (e *StatusUpdateError) Error() string {
	return fmt.Sprintf("failed to advance product %d to status %d: %v", e.ProductID, e.StatusID, e.Err)
}

func (e *StatusUpdateError) Unwrap() error {
	return e.Err
}

func (e *StatusUpdateError) Is(target error) bool {
	return target == ErrStatusUpdate || errors.Is(e.Err, target)
}

// IsNoMatchingStatus checks whether an error is a failed status match.
func IsNoMatchingStatus(err error) bool {
	return errors.Is(err, ErrNoMatchingStatus)
}

// IsStatusUpdateFailed checks whether an error is a failed status write.
func IsStatusUpdateFailed(err error) bool {
	return errors.Is(err, ErrStatusUpdate)
}
