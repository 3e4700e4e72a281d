// migrate is the command-line front end for the migration engine: point
// it at a live database and a schema file, and it brings the former in
// line with the latter.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE — how this file fits into the project
// ────────────────────────────────────────────────────────────────────
// Everything the engine needs lives in the root migrate package and its
// internal/ helpers; this file is just the composition root that wires
// configuration, logging, and the one call to migrate.Migrate together.
//
// LOGGING
// log/slog, colourized with tint when stdout is a real terminal and
// left plain otherwise, same as the rest of this codebase.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"

	"github.com/arjunpatel/sqlitemigrate"
	"github.com/arjunpatel/sqlitemigrate/internal/db"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty(os.Stdout),
	}))
	slog.SetDefault(logger)

	var (
		dsn            = flag.String("db", getenv("MIGRATE_DB", "./data.db"), "live database DSN")
		schemaPath     = flag.String("schema", getenv("MIGRATE_SCHEMA", "schema.sql"), "path to the target schema file")
		allowDeletions = flag.Bool("allow-deletions", getenvBool("MIGRATE_ALLOW_DELETIONS", false), "permit table and column drops")
	)
	flag.Parse()

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		slog.Error("read schema file", "path", *schemaPath, "err", err)
		os.Exit(1)
	}

	handle, err := db.Open(*dsn)
	if err != nil {
		slog.Error("open live database", "dsn", *dsn, "err", err)
		os.Exit(1)
	}
	defer handle.Close()

	start := time.Now()
	changed, err := migrate.Migrate(context.Background(), handle, string(schema), *allowDeletions)
	elapsed := time.Since(start)

	if err != nil {
		if rerr, ok := err.(*migrate.RuntimeError); ok {
			slog.Error("migration failed", "kind", rerr.Kind, "err", rerr, "elapsed", elapsed)
		} else {
			slog.Error("migration failed", "err", err, "elapsed", elapsed)
		}
		os.Exit(1)
	}

	if !changed {
		slog.Info("database already matches schema", "elapsed", elapsed)
		return
	}

	sizeField := slog.String("size", "unknown")
	if fi, err := os.Stat(*dsn); err == nil {
		sizeField = slog.String("size", humanize.Bytes(uint64(fi.Size())))
	}
	slog.Info("migration applied", "elapsed", elapsed, sizeField)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func isatty(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
