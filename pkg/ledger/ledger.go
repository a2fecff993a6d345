package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nvelasco/fasegate/pkg/authz"
	"github.com/nvelasco/fasegate/pkg/models"
)

// Store is the persistence behind the ledger. Records travel as raw maps so
// the flag-key detection can see whatever shape the backend uses; the REST
// collaborator client, the in-memory store and the PostgreSQL store all
// satisfy it.
type Store interface {
	ListRecords(ctx context.Context, productID, phaseID int) ([]map[string]any, error)
	CreateRecord(ctx context.Context, record map[string]any) (map[string]any, error)
	UpdateRecord(ctx context.Context, id int, record map[string]any) error
}

// TaskLister provides the task list of a phase, needed by ResetPhase to
// force every task back to N/N.
type TaskLister interface {
	Tasks(ctx context.Context, phaseID int) ([]models.Task, error)
}

// Ledger mediates all reads and writes of completion records.
type Ledger struct {
	store  Store
	tasks  TaskLister
	auth   authz.Authorizer
	logger *slog.Logger
}

// New creates a ledger over the given store.
func New(store Store, tasks TaskLister, auth authz.Authorizer, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		tasks:  tasks,
		auth:   auth,
		logger: logger.With("module", "ledger"),
	}
}

// Records returns the normalized completion records of one (product, phase)
// pair, keyed by task id. Tasks without a record are simply absent, which
// readers treat as N/N.
func (l *Ledger) Records(ctx context.Context, productID, phaseID int) (map[int]models.CompletionRecord, error) {
	if err := l.auth.CanView(ctx); err != nil {
		return nil, err
	}

	raws, err := l.store.ListRecords(ctx, productID, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion records: %w", err)
	}

	records := make(map[int]models.CompletionRecord, len(raws))
	for _, raw := range raws {
		record := normalize(raw)
		records[record.TaskID] = record
	}

	return records, nil
}

// SetCompleted toggles the completion flag of one task. When a record
// already exists only its completion flag changes; otherwise a fresh record
// is created with validation off. A failed write surfaces as ErrLedgerWrite
// and the caller rolls back its optimistic cache.
func (l *Ledger) SetCompleted(ctx context.Context, productID, phaseID, taskID int, value bool, actingUserID int) (models.CompletionRecord, error) {
	if err := l.auth.CanUpdate(ctx); err != nil {
		return models.CompletionRecord{}, err
	}

	raw, err := l.findRaw(ctx, productID, phaseID, taskID)
	if err != nil {
		return models.CompletionRecord{}, err
	}

	if raw != nil {
		completedKey, _ := flagKeys(raw)
		raw[completedKey] = flag(value)

		if actingUserID != 0 {
			raw["usuarioId"] = actingUserID
		}

		if err := l.store.UpdateRecord(ctx, intField(raw, "id"), raw); err != nil {
			return models.CompletionRecord{}, &WriteError{
				Op: "update", ProductID: productID, PhaseID: phaseID, TaskID: taskID, Err: err,
			}
		}

		return normalize(raw), nil
	}

	created, err := l.store.CreateRecord(ctx, newRaw(productID, phaseID, taskID, value, actingUserID))
	if err != nil {
		return models.CompletionRecord{}, &WriteError{
			Op: "create", ProductID: productID, PhaseID: phaseID, TaskID: taskID, Err: err,
		}
	}

	return normalize(created), nil
}

// SetAllValidated marks supervisor validation on every given record that has
// an id. Only the notification protocol calls this, after a successful
// status advance. Records are re-fetched so the write goes to whatever flag
// key the backend actually uses.
func (l *Ledger) SetAllValidated(ctx context.Context, records []models.CompletionRecord) error {
	if err := l.auth.CanUpdate(ctx); err != nil {
		return err
	}

	for _, group := range groupByPhase(records) {
		raws, err := l.store.ListRecords(ctx, group.productID, group.phaseID)
		if err != nil {
			return fmt.Errorf("failed to re-fetch records for validation: %w", err)
		}

		byID := make(map[int]map[string]any, len(raws))
		for _, raw := range raws {
			byID[intField(raw, "id")] = raw
		}

		for _, record := range group.records {
			if record.ID == 0 {
				continue
			}

			raw, ok := byID[record.ID]
			if !ok {
				return fmt.Errorf("%w: id %d", ErrRecordNotFound, record.ID)
			}

			_, validatedKey := flagKeys(raw)
			raw[validatedKey] = models.FlagYes

			if err := l.store.UpdateRecord(ctx, record.ID, raw); err != nil {
				return &WriteError{
					Op: "validate", ProductID: group.productID, PhaseID: group.phaseID,
					TaskID: record.TaskID, Err: err,
				}
			}
		}
	}

	return nil
}

// ResetPhase forces completion and validation off for every task of the
// phase, creating missing records so the reset survives later key
// detection. Running it twice leaves the same state as running it once.
func (l *Ledger) ResetPhase(ctx context.Context, productID, phaseID int) error {
	if err := l.auth.CanUpdate(ctx); err != nil {
		return err
	}

	tasks, err := l.tasks.Tasks(ctx, phaseID)
	if err != nil {
		return fmt.Errorf("failed to list tasks for reset: %w", err)
	}

	raws, err := l.store.ListRecords(ctx, productID, phaseID)
	if err != nil {
		return fmt.Errorf("failed to list records for reset: %w", err)
	}

	byTask := make(map[int]map[string]any, len(raws))
	for _, raw := range raws {
		byTask[intField(raw, "tareaFaseId")] = raw
	}

	for _, task := range tasks {
		raw, ok := byTask[task.ID]
		if !ok {
			if _, err := l.store.CreateRecord(ctx, newRaw(productID, phaseID, task.ID, false, 0)); err != nil {
				return &WriteError{
					Op: "reset-create", ProductID: productID, PhaseID: phaseID, TaskID: task.ID, Err: err,
				}
			}

			continue
		}

		completedKey, validatedKey := flagKeys(raw)
		raw[completedKey] = models.FlagNo
		raw[validatedKey] = models.FlagNo

		if err := l.store.UpdateRecord(ctx, intField(raw, "id"), raw); err != nil {
			return &WriteError{
				Op: "reset", ProductID: productID, PhaseID: phaseID, TaskID: task.ID, Err: err,
			}
		}
	}

	return nil
}

// Snapshot re-fetches tasks and records fresh from their sources. Critical
// operations verify against a snapshot instead of trusting session caches.
func (l *Ledger) Snapshot(ctx context.Context, productID, phaseID int) ([]models.Task, map[int]models.CompletionRecord, error) {
	tasks, err := l.tasks.Tasks(ctx, phaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	records, err := l.Records(ctx, productID, phaseID)
	if err != nil {
		return nil, nil, err
	}

	return tasks, records, nil
}

func (l *Ledger) findRaw(ctx context.Context, productID, phaseID, taskID int) (map[string]any, error) {
	raws, err := l.store.ListRecords(ctx, productID, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion records: %w", err)
	}

	for _, raw := range raws {
		if intField(raw, "tareaFaseId") == taskID {
			return raw, nil
		}
	}

	return nil, nil
}

// IsPhaseFullyCompleted reports whether every task of the phase has a
// record with completion on. A phase with zero tasks is vacuously complete.
func IsPhaseFullyCompleted(tasks []models.Task, records map[int]models.CompletionRecord) bool {
	for _, task := range tasks {
		record, ok := records[task.ID]
		if !ok || !record.Completed {
			return false
		}
	}

	return true
}

// IsPhaseValidatedBySupervisor reports whether the phase has at least one
// task and every task carries supervisor validation. Unlike completion this
// is never vacuously true: validation only exists as the trace of an
// explicit notification event.
func IsPhaseValidatedBySupervisor(tasks []models.Task, records map[int]models.CompletionRecord) bool {
	if len(tasks) == 0 {
		return false
	}

	for _, task := range tasks {
		record, ok := records[task.ID]
		if !ok || !record.Validated {
			return false
		}
	}

	return true
}

// PendingCount counts the tasks of the phase that are not completed.
func PendingCount(tasks []models.Task, records map[int]models.CompletionRecord) int {
	pending := 0

	for _, task := range tasks {
		record, ok := records[task.ID]
		if !ok || !record.Completed {
			pending++
		}
	}

	return pending
}

// CompletedTaskNames returns the names of the completed tasks in catalog
// order, for the notification message body.
func CompletedTaskNames(tasks []models.Task, records map[int]models.CompletionRecord) []string {
	names := make([]string, 0, len(tasks))

	for _, task := range tasks {
		if record, ok := records[task.ID]; ok && record.Completed {
			names = append(names, task.Name)
		}
	}

	return names
}

// normalize maps one raw store record onto the normalized shape using the
// detected flag keys.
func normalize(raw map[string]any) models.CompletionRecord {
	completedKey, validatedKey := flagKeys(raw)

	return models.CompletionRecord{
		ID:        intField(raw, "id"),
		ProductID: intField(raw, "productoId"),
		PhaseID:   intField(raw, "faseId"),
		TaskID:    intField(raw, "tareaFaseId"),
		Completed: flagSet(raw[completedKey]),
		Validated: flagSet(raw[validatedKey]),
		UserID:    intField(raw, "usuarioId"),
	}
}

func newRaw(productID, phaseID, taskID int, completed bool, actingUserID int) map[string]any {
	raw := map[string]any{
		"productoId":        productID,
		"faseId":            phaseID,
		"tareaFaseId":       taskID,
		defaultCompletedKey: flag(completed),
		defaultValidatedKey: models.FlagNo,
	}

	if actingUserID != 0 {
		raw["usuarioId"] = actingUserID
	}

	return raw
}

func flag(value bool) string {
	if value {
		return models.FlagYes
	}

	return models.FlagNo
}

func flagSet(value any) bool {
	s, ok := value.(string)

	return ok && strings.EqualFold(s, models.FlagYes)
}

// intField tolerates the numeric types JSON decoding and the SQL store
// produce for the same column.
func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

type phaseGroup struct {
	productID int
	phaseID   int
	records   []models.CompletionRecord
}

func groupByPhase(records []models.CompletionRecord) []phaseGroup {
	var groups []phaseGroup

	for _, record := range records {
		placed := false

		for i := range groups {
			if groups[i].productID == record.ProductID && groups[i].phaseID == record.PhaseID {
				groups[i].records = append(groups[i].records, record)
				placed = true

				break
			}
		}

		if !placed {
			groups = append(groups, phaseGroup{
				productID: record.ProductID,
				phaseID:   record.PhaseID,
				records:   []models.CompletionRecord{record},
			})
		}
	}

	return groups
}
