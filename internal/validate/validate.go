// Package validate implements the Schema Validator from spec.md §4.4:
// a lexical scan of the target script for statements the engine refuses
// to let through, run before the pristine database is ever touched.
package validate

import (
	"regexp"
	"strings"

	"github.com/arjunpatel/sqlitemigrate/internal/ident"
	"github.com/arjunpatel/sqlitemigrate/internal/migerr"
)

var (
	attachRe = regexp.MustCompile(`(?i)\bATTACH\s+DATABASE\b`)
	detachRe = regexp.MustCompile(`(?i)\bDETACH\s+DATABASE\b`)
	pragmaRe = regexp.MustCompile(`(?i)\bPRAGMA\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// Schema scans the target script for the banned patterns spec.md §4.4
// lists. An empty or whitespace-only script passes trivially — pristine
// initialization is skipped for it entirely.
func Schema(schema string) error {
	if strings.TrimSpace(schema) == "" {
		return nil
	}
	if attachRe.MatchString(schema) {
		return migerr.New(migerr.InvalidSchema, "ATTACH DATABASE not allowed")
	}
	if detachRe.MatchString(schema) {
		return migerr.New(migerr.InvalidSchema, "DETACH DATABASE not allowed")
	}
	for _, m := range pragmaRe.FindAllStringSubmatch(schema, -1) {
		if !ident.IsAllowedPragma(m[1]) {
			return migerr.New(migerr.InvalidSchema, "unsafe PRAGMA: %s", m[1])
		}
	}
	return nil
}
