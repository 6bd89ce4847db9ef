// Package database provides SQLite connectivity for the source registry.
//
// This package manages:
//   - Database connection with WAL mode, so the registry can be read
//     while the host application updates it
//   - Schema migrations embedded in the binary
//   - Connection lifecycle and health checks
//
// The bridge only reads the registry; the n2k_sources table is written by
// whatever performs address claiming and product discovery on the bus.
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql, and each is applied in its own transaction.
package database
