/*
Package database opens and supervises the embedded SQLite store that
backs audit persistence.

The store is a single local file (or :memory: for tests), opened
through GORM with the pure Go SQLite driver so builds stay CGO-free.
SQLite allows one writer at a time; the pool is therefore restricted
to a single open connection, which turns would-be SQLITE_BUSY errors
into ordinary queueing.

	store, err := database.Open("warden_audit.db", database.DefaultConfig(), logger)
	if err != nil { ... }
	defer store.Close()

	svc, err := audit.NewService(store.DB(), auditCfg, logger)

Store.Ping plugs into the readiness probe; Stats exposes the
underlying sql.DBStats for diagnostics.
*/
package database
