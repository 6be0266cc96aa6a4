// Package database provides SQLite connectivity for the device inventory.
//
// This package manages:
//   - Database connection with optional WAL mode
//   - Schema migrations loaded from an fs.FS (embedded by package migrations)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be NULLABLE or have defaults,
// and each .up.sql file may have a matching .down.sql.
package database
