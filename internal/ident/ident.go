// Package ident provides the two defenses spec.md §4.2 requires against
// unsafe generated DDL: identifier quoting and a pragma whitelist.
package ident

import "strings"

// Quote double-quotes id for interpolation into generated SQL, doubling
// any internal double quotes per SQLite's escaping rule. Every table,
// column, index, trigger and view name the engine interpolates into a
// statement it builds goes through Quote first.
func Quote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// allowed lists the only pragma names the engine will ever execute, per
// spec.md §4.2. Anything else is rejected as UnsafePragma.
var allowed = map[string]bool{
	"foreign_keys":       true,
	"user_version":       true,
	"defer_foreign_keys": true,
	"foreign_key_check":  true,
	"table_info":         true,
}

// IsAllowedPragma reports whether name may be executed as a pragma.
// Comparison is case-insensitive — PRAGMA names are not case sensitive
// in SQLite.
func IsAllowedPragma(name string) bool {
	return allowed[strings.ToLower(name)]
}
