package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"producto_fase_tareas", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Store, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("fasegate_test"),
			postgres.WithUsername("fasegate"),
			postgres.WithPassword("fasegate"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx, databaseURL
}

func TestNewStore_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'producto_fase_tareas'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "producto_fase_tareas table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestStore_RecordLifecycle(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	records, err := store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	assert.Empty(t, records)

	created, err := store.CreateRecord(ctx, map[string]any{
		"productoId":          42,
		"faseId":              1,
		"tareaFaseId":         100,
		"completadaSn":        models.FlagYes,
		"validadaSupervisrSN": models.FlagNo,
		"usuarioId":           7,
	})
	require.NoError(t, err)
	assert.NotZero(t, created["id"])

	records, err = store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.FlagYes, records[0]["completadaSn"])
	assert.Equal(t, models.FlagNo, records[0]["validadaSupervisrSN"])
	assert.Equal(t, 100, records[0]["tareaFaseId"])
	assert.Equal(t, 7, records[0]["usuarioId"])

	records[0]["validadaSupervisrSN"] = models.FlagYes

	id, ok := records[0]["id"].(int)
	require.True(t, ok)

	err = store.UpdateRecord(ctx, id, records[0])
	require.NoError(t, err)

	records, err = store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.FlagYes, records[0]["validadaSupervisrSN"])
}

func TestStore_UpdateRecord_NotFound(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	err := store.UpdateRecord(ctx, 99999, map[string]any{
		"completadaSn":        models.FlagNo,
		"validadaSupervisrSN": models.FlagNo,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_ListRecords_FiltersByProductAndPhase(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	for _, seed := range []struct {
		productID, phaseID, taskID int
	}{
		{42, 1, 100},
		{42, 2, 200},
		{43, 1, 100},
	} {
		_, err := store.CreateRecord(ctx, map[string]any{
			"productoId":          seed.productID,
			"faseId":              seed.phaseID,
			"tareaFaseId":         seed.taskID,
			"completadaSn":        models.FlagNo,
			"validadaSupervisrSN": models.FlagNo,
		})
		require.NoError(t, err)
	}

	records, err := store.ListRecords(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, records[0]["tareaFaseId"])
	assert.NotContains(t, records[0], "usuarioId")
}
