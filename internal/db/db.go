// Package db opens the sqlite connections the migrator runs against:
// the caller's live database, and a private in-memory pristine database
// used to materialize the target schema.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE — why modernc.org/sqlite instead of go-sqlite3?
// ────────────────────────────────────────────────────────────────────
// go-sqlite3 is a CGo binding — it compiles C code alongside your Go
// code. This requires a C compiler (gcc/clang) to be present on the
// build machine and produces a binary that depends on the system's C
// runtime. On many deployment targets (scratch Docker images, some CI
// pipelines, Windows without MinGW) this causes hard-to-debug errors.
//
// modernc.org/sqlite is a pure-Go port of SQLite — no C compiler
// needed, no CGo, cross-compiles cleanly. The tradeoff is a slightly
// larger binary and marginally slower throughput, neither of which
// matters for a migration that runs once at deploy time.
//
// The only visible difference: the driver name changes from "sqlite3"
// to "sqlite".
package db

import (
	"database/sql"
	"fmt"

	// Blank import: the modernc driver registers itself with
	// database/sql under the name "sqlite" when this package loads.
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the sqlite database at dsn. It runs no
// migration of its own — the caller passes the resulting handle to
// migrate.Migrate for that.
//
// LEARNING NOTE — DSN (Data Source Name)
// A DSN is just a connection string. For SQLite it's the file path plus
// optional URI query parameters that configure pragma settings. Using
// URI parameters means every connection from the pool gets the pragmas
// applied automatically — important because database/sql can open many
// connections and each one starts with SQLite defaults.
func Open(dsn string) (*sql.DB, error) {
	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and stores the DSN. The first real connection is
	// made lazily on the first query (or explicitly via Ping).
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return handle, nil
}

// OpenPristine opens a private in-memory sqlite database namespaced by
// token, so two concurrent migrations never share pristine state even
// though an in-memory DSN needs "cache=shared" to survive across the
// connection pool's separate connections.
func OpenPristine(token string) (*sql.DB, error) {
	return Open(fmt.Sprintf("file:pristine-%s?mode=memory&cache=shared", token))
}
