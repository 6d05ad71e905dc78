// Package database provides SQLite connectivity for the MCULink account store.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive-only schema migrations embedded into the binary
//   - Connection lifecycle management and health checks
//
// The relay core itself persists nothing: device records and registries live
// only in process memory. The database holds account credentials used by the
// authentication layer.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
