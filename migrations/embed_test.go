package migrations

import (
	"context"
	"testing"

	"github.com/nerrad567/n2k-switching-core/internal/infrastructure/database"
)

func TestEmbeddedMigrationsApply(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO n2k_sources (source_id, device_id, src, hardware_version,
			device_function, device_instance_lower, device_instance_upper)
		VALUES ('can0', 'c0ffee', 34, '1.0', 140, 10, 0)`); err != nil {
		t.Fatalf("insert into n2k_sources: %v", err)
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d after rollback, want 1", len(pending))
	}
}
