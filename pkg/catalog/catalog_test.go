package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/catalog"
	"github.com/nvelasco/fasegate/pkg/models"
)

type fakeSource struct {
	phases     []models.Phase
	tasks      map[int][]models.Task
	err        error
	phaseCalls int
	taskCalls  int
}

func (f *fakeSource) Phases(context.Context) ([]models.Phase, error) {
	f.phaseCalls++

	return f.phases, f.err
}

func (f *fakeSource) Tasks(_ context.Context, phaseID int) ([]models.Task, error) {
	f.taskCalls++

	return f.tasks[phaseID], f.err
}

func TestListPhases_SortsAndCaches(t *testing.T) {
	source := &fakeSource{
		phases: []models.Phase{
			{ID: 2, Name: "Producción"},
			{ID: 1, Name: "Diseño"},
		},
	}
	cat := catalog.New(source)
	ctx := context.Background()

	phases, err := cat.ListPhases(ctx)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, 1, phases[0].ID)
	assert.Equal(t, 2, phases[1].ID)

	_, err = cat.ListPhases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.phaseCalls, "second read served from cache")
}

func TestListPhases_SourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	cat := catalog.New(source)

	_, err := cat.ListPhases(context.Background())
	require.Error(t, err)
	assert.True(t, catalog.IsUnavailable(err))
}

func TestListTasks_CachesPerPhase(t *testing.T) {
	source := &fakeSource{
		tasks: map[int][]models.Task{
			1: {{ID: 100, PhaseID: 1, Name: "Boceto"}},
			2: {{ID: 200, PhaseID: 2, Name: "Montaje"}},
		},
	}
	cat := catalog.New(source)
	ctx := context.Background()

	tasks, err := cat.ListTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Boceto", tasks[0].Name)

	_, err = cat.ListTasks(ctx, 1)
	require.NoError(t, err)
	_, err = cat.ListTasks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, source.taskCalls, "one source call per phase")
}

func TestTasks_AliasesListTasks(t *testing.T) {
	source := &fakeSource{tasks: map[int][]models.Task{1: {{ID: 100, PhaseID: 1}}}}
	cat := catalog.New(source)

	tasks, err := cat.Tasks(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestRefresh_DropsCache(t *testing.T) {
	source := &fakeSource{phases: []models.Phase{{ID: 1, Name: "Diseño"}}}
	cat := catalog.New(source)
	ctx := context.Background()

	_, err := cat.ListPhases(ctx)
	require.NoError(t, err)

	cat.Refresh()

	_, err = cat.ListPhases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.phaseCalls)
}
