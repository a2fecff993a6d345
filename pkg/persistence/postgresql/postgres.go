// Package postgresql provides PostgreSQL persistence for completion records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/nvelasco/fasegate/pkg/models"
	"github.com/nvelasco/fasegate/pkg/persistence/sqlbase"
)

// Store keeps completion records in a producto_fase_tareas table. It is
// used when the service owns the ledger instead of delegating it to the
// collaborator API.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects, runs migrations and returns a record store.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// ListRecords returns every completion record of one (product, phase) pair
// in the raw map shape the ledger expects.
func (s *Store) ListRecords(ctx context.Context, productID, phaseID int) ([]map[string]any, error) {
	query := `
		SELECT id, producto_id, fase_id, tarea_fase_id, completada_sn, validada_supervisr_sn, usuario_id
		FROM producto_fase_tareas
		WHERE producto_id = $1 AND fase_id = $2
		ORDER BY tarea_fase_id
	`

	rows, err := s.db.QueryContext(ctx, query, productID, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion records: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var records []map[string]any

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completion record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completion records: %w", err)
	}

	return records, nil
}

// CreateRecord inserts a record and returns it with the assigned id.
func (s *Store) CreateRecord(ctx context.Context, record map[string]any) (map[string]any, error) {
	query := `
		INSERT INTO producto_fase_tareas (producto_id, fase_id, tarea_fase_id, completada_sn, validada_supervisr_sn, usuario_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`

	var id int

	err := s.db.QueryRowContext(ctx, query,
		intField(record, "productoId"),
		intField(record, "faseId"),
		intField(record, "tareaFaseId"),
		flagField(record, "completadaSn"),
		flagField(record, "validadaSupervisrSN"),
		userField(record),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert completion record: %w", err)
	}

	created := make(map[string]any, len(record)+1)
	for key, value := range record {
		created[key] = value
	}

	created["id"] = id

	return created, nil
}

// UpdateRecord overwrites the flags and acting user of an existing record.
func (s *Store) UpdateRecord(ctx context.Context, id int, record map[string]any) error {
	query := `
		UPDATE producto_fase_tareas
		SET completada_sn = $2, validada_supervisr_sn = $3, usuario_id = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		flagField(record, "completadaSn"),
		flagField(record, "validadaSupervisrSN"),
		userField(record),
	)
	if err != nil {
		return fmt.Errorf("failed to update completion record %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("completion record not found: %d", id)
	}

	return nil
}

func scanRecord(rows *sql.Rows) (map[string]any, error) {
	var (
		id, productID, phaseID, taskID int
		completed, validated           string
		userID                         sql.NullInt64
	)

	err := rows.Scan(&id, &productID, &phaseID, &taskID, &completed, &validated, &userID)
	if err != nil {
		return nil, err
	}

	record := map[string]any{
		"id":                  id,
		"productoId":          productID,
		"faseId":              phaseID,
		"tareaFaseId":         taskID,
		"completadaSn":        completed,
		"validadaSupervisrSN": validated,
	}

	if userID.Valid {
		record["usuarioId"] = int(userID.Int64)
	}

	return record, nil
}

func intField(record map[string]any, key string) int {
	switch v := record[key].(type) {
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

func flagField(record map[string]any, key string) string {
	if s, ok := record[key].(string); ok && s != "" {
		return s
	}

	return models.FlagNo
}

func userField(record map[string]any) sql.NullInt64 {
	userID := intField(record, "usuarioId")
	if userID == 0 {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(userID), Valid: true}
}
