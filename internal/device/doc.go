// Package device holds the source registry: the devices seen on the
// NMEA 2000 bus, with their address, product information and instance.
//
// The registry is read-only from this service's point of view. Records are
// written by the host application, either into the n2k_sources SQLite table
// or into a JSON sources file, and the Registry keeps a cached copy that the
// translator resolves switch bank addresses against.
//
// # Backends
//
//   - SQLiteRepository reads the n2k_sources table created by the migrations
//     package. Upsert is used by the import command.
//   - FileRepository re-reads a JSON sources document on every refresh.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log.Component("registry"))
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	go registry.Watch(ctx, cfg.GetRefreshInterval())
//
// Registry satisfies switching.SnapshotSource.
package device
