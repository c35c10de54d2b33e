// Package database provides SQLite connectivity for the family rules service.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout for concurrent access
//   - Schema migrations loaded from an fs.FS (normally the embedded
//     migrations package)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Device secrets are stored only as Argon2id hashes (see internal/auth)
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Applied versions are tracked in schema_migrations.
package database
