// Package ledger maintains the per (product, phase, task) completion
// records: the "completed" flag toggled from the panel and the
// "validated by supervisor" flag that only the notification protocol may
// set. The backing store speaks raw record maps; flag field names are
// detected per record and normalized at this boundary.
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrLedgerWrite indicates a create or update against the record store
	// failed. Callers must roll back their optimistic cache to the
	// pre-toggle value; there is no automatic retry.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrRecordNotFound indicates a record id was not present in the store.
	ErrRecordNotFound = errors.New("completion record not found")
)

// WriteError wraps a failed store write with its composite key.
type WriteError struct {
	Op        string
	ProductID int
	PhaseID   int
	TaskID    int
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s failed for product %d phase %d task %d: %v",
		e.Op, e.ProductID, e.PhaseID, e.TaskID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func (e *WriteError) Is(target error) bool {
	return target == ErrLedgerWrite || errors.Is(e.Err, target)
}

// IsWriteFailed checks whether an error is a ledger write failure.
func IsWriteFailed(err error) bool {
	return errors.Is(err, ErrLedgerWrite)
}
