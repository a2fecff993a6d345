// Package catalog provides read-only access to the ordered phase and task
// catalog. The catalog is owned by an external admin flow; this service
// never writes it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nvelasco/fasegate/pkg/models"
)

// ErrCatalogUnavailable indicates the catalog endpoint errored. Callers
// degrade to an empty list and a non-fatal message instead of crashing.
var ErrCatalogUnavailable = errors.New("phase catalog unavailable")

// Source is the upstream catalog API.
type Source interface {
	Phases(ctx context.Context) ([]models.Phase, error)
	Tasks(ctx context.Context, phaseID int) ([]models.Task, error)
}

// Catalog caches the phase list and per-phase task lists for the lifetime
// of the process. The display layer may reverse the phase order; gating
// always reads the ascending-id order returned here.
type Catalog struct {
	source Source

	mu     sync.RWMutex
	phases []models.Phase
	tasks  map[int][]models.Task
}

// New creates a catalog accessor over the given source.
func New(source Source) *Catalog {
	return &Catalog{
		source: source,
		tasks:  make(map[int][]models.Task),
	}
}

// ListPhases returns every phase in ascending-id order.
func (c *Catalog) ListPhases(ctx context.Context) ([]models.Phase, error) {
	c.mu.RLock()
	cached := c.phases
	c.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}

	phases, err := c.source.Phases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	sorted := models.SortPhases(phases)

	c.mu.Lock()
	c.phases = sorted
	c.mu.Unlock()

	return sorted, nil
}

// ListTasks returns the tasks of one phase in catalog order.
func (c *Catalog) ListTasks(ctx context.Context, phaseID int) ([]models.Task, error) {
	c.mu.RLock()
	cached, ok := c.tasks[phaseID]
	c.mu.RUnlock()

	if ok {
		return cached, nil
	}

	tasks, err := c.source.Tasks(ctx, phaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	c.mu.Lock()
	c.tasks[phaseID] = tasks
	c.mu.Unlock()

	return tasks, nil
}

// Tasks implements ledger.TaskLister over the cached catalog.
func (c *Catalog) Tasks(ctx context.Context, phaseID int) ([]models.Task, error) {
	return c.ListTasks(ctx, phaseID)
}

// Refresh drops the cache so the next read re-fetches from the source.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phases = nil
	c.tasks = make(map[int][]models.Task)
}

// IsUnavailable checks whether an error is a catalog availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}
