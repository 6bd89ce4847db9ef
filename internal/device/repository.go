package device

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// Repository supplies the source registry contents.
// Implementations return records in a stable order; the first matching
// record wins during device resolution.
type Repository interface {
	// List returns every registry record.
	List(ctx context.Context) (switching.Snapshot, error)
}

// SQLiteRepository reads the n2k_sources table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns all source records ordered by source then device id.
func (r *SQLiteRepository) List(ctx context.Context) (switching.Snapshot, error) {
	query := `
		SELECT source_id, device_id, src, hardware_version, device_function,
			device_instance_lower, device_instance_upper, manufacturer, model_id
		FROM n2k_sources
		ORDER BY source_id, device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var snapshot switching.Snapshot
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return snapshot, nil
}

// Upsert inserts or replaces records in a single transaction.
func (r *SQLiteRepository) Upsert(ctx context.Context, records []switching.DeviceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO n2k_sources (
			source_id, device_id, src, hardware_version, device_function,
			device_instance_lower, device_instance_upper, manufacturer, model_id,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT (source_id, device_id) DO UPDATE SET
			src = excluded.src,
			hardware_version = excluded.hardware_version,
			device_function = excluded.device_function,
			device_instance_lower = excluded.device_instance_lower,
			device_instance_upper = excluded.device_instance_upper,
			manufacturer = excluded.manufacturer,
			model_id = excluded.model_id,
			updated_at = excluded.updated_at`

	for _, rec := range records {
		if rec.SourceID == "" || rec.DeviceID == "" {
			return fmt.Errorf("%w: source and device id are required", ErrInvalidRecord)
		}
		_, err := tx.ExecContext(ctx, query,
			rec.SourceID,
			rec.DeviceID,
			rec.Address,
			nullableString(rec.HardwareVersion),
			rec.DeviceFunction,
			nullableNibble(rec.InstanceLower),
			nullableNibble(rec.InstanceUpper),
			nullableString(rec.Manufacturer),
			nullableString(rec.ModelID),
		)
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %w", ErrInvalidRecord, rec.SourceID, rec.DeviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sources: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (switching.DeviceRecord, error) {
	var (
		rec          switching.DeviceRecord
		hwVersion    sql.NullString
		function     sql.NullInt64
		lower, upper sql.NullInt64
		manufacturer sql.NullString
		modelID      sql.NullString
	)

	err := scanner.Scan(
		&rec.SourceID,
		&rec.DeviceID,
		&rec.Address,
		&hwVersion,
		&function,
		&lower,
		&upper,
		&manufacturer,
		&modelID,
	)
	if err != nil {
		return switching.DeviceRecord{}, fmt.Errorf("scanning source: %w", err)
	}

	rec.HardwareVersion = hwVersion.String
	rec.DeviceFunction = int(function.Int64)
	rec.InstanceLower = nibbleOrMissing(lower)
	rec.InstanceUpper = nibbleOrMissing(upper)
	rec.Manufacturer = manufacturer.String
	rec.ModelID = modelID.String
	return rec, nil
}

func nibbleOrMissing(n sql.NullInt64) int {
	if !n.Valid {
		return missingNibble
	}
	return int(n.Int64)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableNibble(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != missingNibble}
}

// FileRepository reads a JSON sources document from disk on every List.
// The file is written by the host application; see ParseSources for the format.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository over the sources file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the sources file path.
func (r *FileRepository) Path() string {
	return r.path
}

// List reads and parses the sources file.
func (r *FileRepository) List(_ context.Context) (switching.Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	return ParseSources(data)
}
