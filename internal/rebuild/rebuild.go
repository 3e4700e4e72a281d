// Package rebuild implements the Table Recreator from spec.md §4.6: the
// twelve-step SQLite table rebuild, run entirely inside the live write
// transaction the orchestrator already holds open.
package rebuild

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/arjunpatel/sqlitemigrate/internal/catalog"
	"github.com/arjunpatel/sqlitemigrate/internal/ident"
)

// Execer is satisfied by *sql.Tx — table rebuilds only ever run against
// the live write transaction, never the pristine database.
type Execer interface {
	catalog.Queryer
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const newTableSuffix = "_migration_new"

// Table rebuilds one table whose definition changed. pristineSQL is the
// table's CREATE statement as read from the pristine database;
// pristineDeps is that table's indices and triggers as recorded in the
// pristine catalog (the authoritative definitions to install once the
// rebuild completes); commonColumns is the ordered column list shared
// between the live and pristine definitions.
//
// Precondition: tx is a write transaction with foreign_keys = OFF and
// defer_foreign_keys = TRUE already in effect.
func Table(ctx context.Context, tx Execer, table, pristineSQL string, pristineDeps []catalog.Object, commonColumns []string) error {
	liveDeps, err := catalog.DependenciesOf(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("rebuild %s: snapshot live dependencies: %w", table, err)
	}

	// Step 2: drop live triggers. Indices are dropped implicitly by the
	// DROP TABLE in step 6; views are handled globally by the
	// orchestrator before any table is touched.
	for _, dep := range liveDeps {
		if dep.Kind != catalog.Trigger {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DROP TRIGGER `+ident.Quote(dep.Name)); err != nil {
			return fmt.Errorf("rebuild %s: drop trigger %s: %w", table, dep.Name, err)
		}
	}

	// Step 3-4: create <table>_migration_new from the pristine
	// definition, with every occurrence of the table name rewritten.
	newName := table + newTableSuffix
	createSQL := renameTable(pristineSQL, table, newName)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("rebuild %s: create %s: %w", table, newName, err)
	}

	// Step 5: copy the common columns across. An empty common set means
	// the new table simply starts empty — no INSERT is emitted.
	if len(commonColumns) > 0 {
		cols := quoteAll(commonColumns)
		insertSQL := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s`,
			ident.Quote(newName), cols, cols, ident.Quote(table))
		if _, err := tx.ExecContext(ctx, insertSQL); err != nil {
			return fmt.Errorf("rebuild %s: copy data into %s: %w", table, newName, err)
		}
	}

	// Step 6: drop the old table.
	if _, err := tx.ExecContext(ctx, `DROP TABLE `+ident.Quote(table)); err != nil {
		return fmt.Errorf("rebuild %s: drop old table: %w", table, err)
	}

	// Step 7: rename the new table into place.
	renameSQL := fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, ident.Quote(newName), ident.Quote(table))
	if _, err := tx.ExecContext(ctx, renameSQL); err != nil {
		return fmt.Errorf("rebuild %s: rename %s into place: %w", table, newName, err)
	}

	// Step 8: recreate every pristine index/trigger verbatim, now that
	// the table has its original name back.
	for _, dep := range pristineDeps {
		if dep.Kind != catalog.Index && dep.Kind != catalog.Trigger {
			continue
		}
		if _, err := tx.ExecContext(ctx, dep.SQL); err != nil {
			return fmt.Errorf("rebuild %s: recreate %s %s: %w", table, dep.Kind, dep.Name, err)
		}
	}
	return nil
}

func quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// renameTable replaces every case-insensitive occurrence of oldName in
// createSQL with newName: a double-quoted occurrence (e.g. "my-table") is
// matched together with its quotes, and a bare occurrence is matched as
// a whole word.
//
// regexp.QuoteMeta escapes any punctuation inside oldName before either
// pattern is built. The quoted alternative is tried first, so the text
// inside a quoted identifier is never matched on its own.
func renameTable(createSQL, oldName, newName string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(ident.Quote(oldName)) + `|\b` + regexp.QuoteMeta(oldName) + `\b`)
	// newName is always substituted quoted: a quoted original loses its
	// own quotes in the match, a bare one had none, and a quoted
	// identifier is valid SQL either way.
	replacement := strings.ReplaceAll(ident.Quote(newName), `$`, `$$`)
	return re.ReplaceAllString(createSQL, replacement)
}
