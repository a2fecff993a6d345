package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/persistence/memory"
)

func TestStore_CreateAssignsSequentialIDs(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first, err := store.CreateRecord(ctx, map[string]any{
		"productoId": 42, "faseId": 1, "tareaFaseId": 100,
		"completadaSn": models.FlagNo, "validadaSupervisrSN": models.FlagNo,
	})
	require.NoError(t, err)

	second, err := store.CreateRecord(ctx, map[string]any{
		"productoId": 42, "faseId": 1, "tareaFaseId": 101,
		"completadaSn": models.FlagNo, "validadaSupervisrSN": models.FlagNo,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, first["id"])
	assert.Equal(t, 2, second["id"])
}

func TestStore_ListFiltersAndCopies(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.CreateRecord(ctx, map[string]any{
		"productoId": 42, "faseId": 1, "tareaFaseId": 100,
		"completadaSn": models.FlagYes, "validadaSupervisrSN": models.FlagNo,
	})
	require.NoError(t, err)

	_, err = store.CreateRecord(ctx, map[string]any{
		"productoId": 42, "faseId": 2, "tareaFaseId": 200,
		"completadaSn": models.FlagNo, "validadaSupervisrSN": models.FlagNo,
	})
	require.NoError(t, err)

	records, err := store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Mutating the returned map must not leak into the store.
	records[0]["completadaSn"] = models.FlagNo

	again, err := store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, models.FlagYes, again[0]["completadaSn"])
}

func TestStore_UpdateOverwrites(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	created, err := store.CreateRecord(ctx, map[string]any{
		"productoId": 42, "faseId": 1, "tareaFaseId": 100,
		"completadaSn": models.FlagNo, "validadaSupervisrSN": models.FlagNo,
	})
	require.NoError(t, err)

	created["validadaSupervisrSN"] = models.FlagYes

	id, ok := created["id"].(int)
	require.True(t, ok)

	err = store.UpdateRecord(ctx, id, created)
	require.NoError(t, err)

	records, err := store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.FlagYes, records[0]["validadaSupervisrSN"])
}
