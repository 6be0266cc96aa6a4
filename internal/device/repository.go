package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository persists the device inventory and pass history.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// SaveDevice inserts or replaces the inventory entry for rec.Name.
	// A later pass that re-creates a device overwrites the earlier entry.
	SaveDevice(ctx context.Context, rec *Record) error

	// GetDevice returns ErrDeviceNotFound if the name is unknown.
	GetDevice(ctx context.Context, name string) (*Record, error)

	// ListDevices returns all entries ordered by name.
	ListDevices(ctx context.Context) ([]Record, error)

	// SavePass records a finished pass.
	// Returns ErrPassExists if the ID is already recorded.
	SavePass(ctx context.Context, pass *PassRecord) error

	// GetPass returns ErrPassNotFound if the ID is unknown.
	GetPass(ctx context.Context, id string) (*PassRecord, error)

	// ListPasses returns passes newest first, at most limit (0 = all).
	ListPasses(ctx context.Context, limit int) ([]PassRecord, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveDevice inserts or replaces an inventory entry.
func (r *SQLiteRepository) SaveDevice(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Name == "" {
		return fmt.Errorf("%w: device name is required", ErrInvalidRecord)
	}

	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	mdJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata of %s: %w", rec.Name, err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (name, type_ref, location, metadata, pass_id, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			type_ref = excluded.type_ref,
			location = excluded.location,
			metadata = excluded.metadata,
			pass_id = excluded.pass_id,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at`

	_, err = r.db.ExecContext(ctx, query,
		rec.Name,
		rec.TypeRef,
		rec.Location,
		string(mdJSON),
		rec.PassID,
		durationToMillis(rec.Duration),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving device %s: %w", rec.Name, err)
	}
	return nil
}

// GetDevice retrieves one inventory entry.
func (r *SQLiteRepository) GetDevice(ctx context.Context, name string) (*Record, error) {
	query := `
		SELECT name, type_ref, location, metadata, pass_id, duration_ms, created_at
		FROM devices
		WHERE name = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by name: %w", err)
	}
	return rec, nil
}

// ListDevices retrieves all inventory entries.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Record, error) {
	query := `
		SELECT name, type_ref, location, metadata, pass_id, duration_ms, created_at
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// SavePass inserts a pass history entry.
func (r *SQLiteRepository) SavePass(ctx context.Context, pass *PassRecord) error {
	if pass == nil || pass.ID == "" {
		return fmt.Errorf("%w: pass id is required", ErrInvalidRecord)
	}

	pending := pass.Pending
	if pending == nil {
		pending = []string{}
	}
	pendingJSON, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshalling pending: %w", err)
	}

	query := `
		INSERT INTO instantiation_passes (id, started_at, duration_ms, declared, completed, pending, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		pass.ID,
		pass.StartedAt.UTC().Format(time.RFC3339Nano),
		durationToMillis(pass.Duration),
		pass.Declared,
		pass.Completed,
		string(pendingJSON),
		nullableString(pass.Error),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPassExists
		}
		return fmt.Errorf("inserting pass: %w", err)
	}
	return nil
}

// GetPass retrieves one pass history entry.
func (r *SQLiteRepository) GetPass(ctx context.Context, id string) (*PassRecord, error) {
	query := `
		SELECT id, started_at, duration_ms, declared, completed, pending, error
		FROM instantiation_passes
		WHERE id = ?`

	pass, err := scanPass(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPassNotFound
		}
		return nil, fmt.Errorf("querying pass by id: %w", err)
	}
	return pass, nil
}

// ListPasses retrieves pass history, newest first.
func (r *SQLiteRepository) ListPasses(ctx context.Context, limit int) ([]PassRecord, error) {
	query := `
		SELECT id, started_at, duration_ms, declared, completed, pending, error
		FROM instantiation_passes
		ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer rows.Close()

	var passes []PassRecord
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pass: %w", err)
		}
		passes = append(passes, *pass)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passes: %w", err)
	}
	return passes, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var rec Record
	var mdJSON, createdAt string
	var durationMS float64

	if err := scanner.Scan(&rec.Name, &rec.TypeRef, &rec.Location, &mdJSON, &rec.PassID, &durationMS, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mdJSON), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("parsing metadata of %s: %w", rec.Name, err)
	}
	if len(rec.Metadata) == 0 {
		rec.Metadata = nil
	}
	rec.Duration = millisToDuration(durationMS)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", rec.Name, err)
	}
	rec.CreatedAt = t

	return &rec, nil
}

func scanPass(scanner rowScanner) (*PassRecord, error) {
	var pass PassRecord
	var startedAt, pendingJSON string
	var durationMS float64
	var passErr sql.NullString

	if err := scanner.Scan(&pass.ID, &startedAt, &durationMS, &pass.Declared, &pass.Completed, &pendingJSON, &passErr); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pendingJSON), &pass.Pending); err != nil {
		return nil, fmt.Errorf("parsing pending of pass %s: %w", pass.ID, err)
	}
	if len(pass.Pending) == 0 {
		pass.Pending = nil
	}
	pass.Duration = millisToDuration(durationMS)
	pass.Error = passErr.String

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at of pass %s: %w", pass.ID, err)
	}
	pass.StartedAt = t

	return &pass, nil
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// nullableString maps an empty string to NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
