// Package migrate is the public entry point of the engine: Migrate
// diffs a target SQL schema against a live database and applies the
// minimal DDL to reach it, inside one transaction.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunpatel/sqlitemigrate/internal/catalog"
	"github.com/arjunpatel/sqlitemigrate/internal/db"
	"github.com/arjunpatel/sqlitemigrate/internal/ident"
	"github.com/arjunpatel/sqlitemigrate/internal/migerr"
	"github.com/arjunpatel/sqlitemigrate/internal/plan"
	"github.com/arjunpatel/sqlitemigrate/internal/rebuild"
	"github.com/arjunpatel/sqlitemigrate/internal/validate"
)

// execQueryer is satisfied by both *sql.DB and *sql.Tx.
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Migrate brings live's schema in line with schema. It returns true iff
// at least one statement changed live's catalog, which a caller can use
// to decide whether a VACUUM-adjacent cache needs invalidating, etc.
// schema may be empty, meaning "no target supplied" — live is left
// completely untouched and Migrate returns false.
//
// allowDeletions gates anything destructive: dropped tables and dropped
// columns. With it false, a schema requiring either fails the whole
// call with a DeletionRefused RuntimeError before live is touched.
//
// Migrate opens its own transaction on live; it does not nest inside a
// caller-supplied one.
func Migrate(ctx context.Context, live *sql.DB, schema string, allowDeletions bool) (bool, error) {
	runID := uuid.NewString()
	log := slog.Default().With("run_id", runID)
	log.Info("migration starting", "allow_deletions", allowDeletions)

	if err := validate.Schema(schema); err != nil {
		log.Error("schema rejected", "err", err)
		return false, err
	}

	var pristine *sql.DB
	if strings.TrimSpace(schema) != "" {
		p, err := db.OpenPristine(runID)
		if err != nil {
			return false, migerr.Wrap(migerr.ExecutionFailure, err, "open pristine database")
		}
		pristine = p
		defer pristine.Close()

		if _, err := pristine.ExecContext(ctx, schema); err != nil {
			return false, migerr.Wrap(migerr.InvalidSchema, err, "Invalid schema SQL")
		}
	}

	origForeignKeys, err := readPragmaBool(ctx, live, "foreign_keys")
	if err != nil {
		return false, migerr.Wrap(migerr.ExecutionFailure, err, "read foreign_keys pragma")
	}

	tx, err := live.BeginTx(ctx, nil)
	if err != nil {
		return false, migerr.Wrap(migerr.ExecutionFailure, err, "begin write transaction")
	}

	if origForeignKeys {
		if _, err := pragmaExec(ctx, tx, "foreign_keys", "OFF"); err != nil {
			_ = tx.Rollback()
			return false, migerr.Wrap(migerr.ExecutionFailure, err, "disable foreign_keys")
		}
	}
	if _, err := pragmaExec(ctx, tx, "defer_foreign_keys", "TRUE"); err != nil {
		_ = tx.Rollback()
		return false, migerr.Wrap(migerr.ExecutionFailure, err, "enable defer_foreign_keys")
	}

	m := &migration{
		ctx:             ctx,
		tx:              tx,
		pristine:        pristine,
		log:             log,
		origForeignKeys: origForeignKeys,
	}

	if err := m.run(allowDeletions); err != nil {
		_ = tx.Rollback()
		restoreForeignKeys(ctx, live, origForeignKeys, log)
		log.Error("migration rolled back", "err", err)
		return false, err
	}

	if err := tx.Commit(); err != nil {
		restoreForeignKeys(ctx, live, origForeignKeys, log)
		return false, migerr.Wrap(migerr.ExecutionFailure, err, "commit")
	}

	counter := m.counter
	if pristine != nil {
		if err := reconcileForeignKeys(ctx, live, origForeignKeys, m.pristineForeignKeys, &counter); err != nil {
			return false, migerr.Wrap(migerr.ExecutionFailure, err, "reconcile foreign_keys pragma")
		}
	}

	if counter > 0 {
		log.Info("vacuuming after applied changes", "changes", counter)
		if _, err := live.ExecContext(ctx, `VACUUM`); err != nil {
			return false, migerr.Wrap(migerr.ExecutionFailure, err, "vacuum")
		}
	}

	log.Info("migration complete", "changed", counter > 0, "changes", counter)
	return counter > 0, nil
}

// migration carries the state threaded through Phase C's nine steps.
type migration struct {
	ctx      context.Context
	tx       *sql.Tx
	pristine *sql.DB
	log      *slog.Logger

	origForeignKeys     bool
	pristineForeignKeys bool
	counter             int
}

func (m *migration) count(n int) { m.counter += n }

// exec runs a DDL statement against the live transaction and counts it
// as a net change.
func (m *migration) exec(query string) error {
	if _, err := m.tx.ExecContext(m.ctx, query); err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "exec %q", query)
	}
	m.count(1)
	return nil
}

// execUncounted runs a DDL statement that is bookkeeping rather than a
// semantic change (e.g. recreating a view that turned out identical).
func (m *migration) execUncounted(query string) error {
	if _, err := m.tx.ExecContext(m.ctx, query); err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "exec %q", query)
	}
	return nil
}

func (m *migration) pristineObjects(kind catalog.Kind) ([]catalog.Object, error) {
	if m.pristine == nil {
		return nil, nil
	}
	objs, err := catalog.ListObjects(m.ctx, m.pristine, kind)
	if err != nil {
		return nil, migerr.Wrap(migerr.ExecutionFailure, err, "list pristine %s objects", kind)
	}
	return objs, nil
}

// run executes Phase C: plan and apply, in the nine ordered steps
// spec.md §4.7 lays out.
func (m *migration) run(allowDeletions bool) error {
	if m.pristine == nil {
		// No target schema was supplied — spec.md §8 scenario I treats
		// this as a pure no-op, not "target is the empty catalog", so
		// nothing in live is planned against or touched.
		return nil
	}

	// Step 1: drop every live view unconditionally. A snapshot taken
	// just before the drop is what step 7 diffs against pristine, so a
	// view that round-trips identically isn't double-counted as both a
	// drop and a create.
	liveViewsBefore, err := catalog.ListObjects(m.ctx, m.tx, catalog.View)
	if err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "list live views")
	}
	for _, v := range liveViewsBefore {
		if err := m.execUncounted(`DROP VIEW ` + ident.Quote(v.Name)); err != nil {
			return err
		}
	}
	m.log.Debug("views dropped pending reconciliation", "count", len(liveViewsBefore))

	liveTables, err := catalog.ListObjects(m.ctx, m.tx, catalog.Table)
	if err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "list live tables")
	}
	pristineTables, err := m.pristineObjects(catalog.Table)
	if err != nil {
		return err
	}
	createdTables, droppedTables, modifiedTables := plan.Diff(liveTables, pristineTables)
	m.log.Debug("table diff planned", "created", len(createdTables), "dropped", len(droppedTables), "modified", len(modifiedTables))

	type tableRebuild struct {
		target      catalog.Object
		removedCols []string
		commonCols  []string
	}
	rebuilds := make([]tableRebuild, 0, len(modifiedTables))
	for _, t := range modifiedTables {
		liveCols, err := catalog.ColumnsOf(m.ctx, m.tx, t.Name)
		if err != nil {
			return migerr.Wrap(migerr.ExecutionFailure, err, "columns of live %s", t.Name)
		}
		pristineCols, err := catalog.ColumnsOf(m.ctx, m.pristine, t.Name)
		if err != nil {
			return migerr.Wrap(migerr.ExecutionFailure, err, "columns of pristine %s", t.Name)
		}
		removed, common := plan.ColumnDiff(liveCols, pristineCols)
		rebuilds = append(rebuilds, tableRebuild{target: t, removedCols: removed, commonCols: common})
	}

	// Deletion guard: must fail before any table is mutated if dropping
	// anything is required but the caller disallowed it.
	if !allowDeletions {
		if len(droppedTables) > 0 {
			names := make([]string, len(droppedTables))
			for i, t := range droppedTables {
				names[i] = t.Name
			}
			return migerr.New(migerr.DeletionRefused, "Refusing to delete tables: %s", strings.Join(names, ", "))
		}
		for _, r := range rebuilds {
			if len(r.removedCols) > 0 {
				return migerr.New(migerr.DeletionRefused, "Refusing to remove columns %s from table %s",
					strings.Join(r.removedCols, ", "), r.target.Name)
			}
		}
	}

	// Step 2: create pristine-only tables.
	for _, t := range createdTables {
		if err := m.exec(t.SQL); err != nil {
			return err
		}
	}

	// Step 3: drop pristine-absent tables.
	for _, t := range droppedTables {
		if err := m.exec(`DROP TABLE ` + ident.Quote(t.Name)); err != nil {
			return err
		}
	}

	// Step 4: rebuild modified tables.
	for _, r := range rebuilds {
		deps, err := catalog.DependenciesOf(m.ctx, m.pristine, r.target.Name)
		if err != nil {
			return migerr.Wrap(migerr.ExecutionFailure, err, "pristine dependencies of %s", r.target.Name)
		}
		if err := rebuild.Table(m.ctx, m.tx, r.target.Name, r.target.SQL, deps, r.commonCols); err != nil {
			return migerr.Wrap(migerr.ExecutionFailure, err, "rebuild table %s", r.target.Name)
		}
		m.log.Debug("table rebuilt", "table", r.target.Name, "removed_columns", r.removedCols)
		m.count(1)
	}

	// Step 5: reconcile standalone indices.
	if err := m.reconcileSimple(catalog.Index); err != nil {
		return err
	}
	// Step 6: reconcile triggers.
	if err := m.reconcileSimple(catalog.Trigger); err != nil {
		return err
	}
	// Step 7: reconcile views against the pre-drop snapshot.
	if err := m.reconcileViews(liveViewsBefore); err != nil {
		return err
	}

	// Step 8: migrate user_version.
	if err := m.migrateUserVersion(); err != nil {
		return err
	}

	// Step 9: foreign-key check, gated on the stricter of live's
	// original setting and pristine's declared setting (spec.md §9).
	pristineFK, err := m.pristinePragmaBool("foreign_keys")
	if err != nil {
		return err
	}
	m.pristineForeignKeys = pristineFK
	if m.origForeignKeys || pristineFK {
		violated, err := m.hasForeignKeyViolations()
		if err != nil {
			return migerr.Wrap(migerr.ExecutionFailure, err, "foreign_key_check")
		}
		if violated {
			return migerr.New(migerr.ForeignKeyViolation, "Would fail foreign_key_check")
		}
	}

	return nil
}

// reconcileSimple handles indices and triggers identically: drop what
// pristine no longer declares, drop-then-recreate what changed, create
// what's new. Both sides of the diff are re-queried fresh, so a rebuilt
// table's own dependents (already recreated by rebuild.Table) are never
// touched again here.
func (m *migration) reconcileSimple(kind catalog.Kind) error {
	live, err := catalog.ListObjects(m.ctx, m.tx, kind)
	if err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "list live %s", kind)
	}
	pristineObjs, err := m.pristineObjects(kind)
	if err != nil {
		return err
	}
	created, dropped, modified := plan.Diff(live, pristineObjs)

	for _, o := range dropped {
		if err := m.exec(dropStatement(kind, o.Name)); err != nil {
			return err
		}
	}
	for _, o := range modified {
		if err := m.exec(dropStatement(kind, o.Name)); err != nil {
			return err
		}
		if err := m.exec(o.SQL); err != nil {
			return err
		}
	}
	for _, o := range created {
		if err := m.exec(o.SQL); err != nil {
			return err
		}
	}
	return nil
}

// reconcileViews restores every pristine view, since step 1 dropped all
// of live's unconditionally. before is live's pre-drop snapshot: a view
// pristine still declares identically is recreated but not counted, so
// an idempotent re-run over unchanged views never forces a VACUUM.
func (m *migration) reconcileViews(before []catalog.Object) error {
	pristineViews, err := m.pristineObjects(catalog.View)
	if err != nil {
		return err
	}
	created, dropped, modified := plan.Diff(before, pristineViews)
	m.count(len(dropped))

	changed := make(map[string]bool, len(created)+len(modified))
	for _, o := range created {
		changed[o.Name] = true
	}
	for _, o := range modified {
		changed[o.Name] = true
	}

	for _, v := range pristineViews {
		if err := m.execUncounted(v.SQL); err != nil {
			return err
		}
		if changed[v.Name] {
			m.count(1)
		}
	}
	return nil
}

func (m *migration) migrateUserVersion() error {
	if m.pristine == nil {
		return nil
	}
	live, err := readPragmaInt(m.ctx, m.tx, "user_version")
	if err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "read live user_version")
	}
	pristineVersion, err := readPragmaInt(m.ctx, m.pristine, "user_version")
	if err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "read pristine user_version")
	}
	if live == pristineVersion {
		return nil
	}
	if _, err := pragmaExec(m.ctx, m.tx, "user_version", fmt.Sprintf("%d", pristineVersion)); err != nil {
		return migerr.Wrap(migerr.ExecutionFailure, err, "set user_version")
	}
	m.count(1)
	return nil
}

func (m *migration) hasForeignKeyViolations() (bool, error) {
	rows, err := m.tx.QueryContext(m.ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if rows.Next() {
		return true, nil
	}
	return false, rows.Err()
}

func (m *migration) pristinePragmaBool(name string) (bool, error) {
	if m.pristine == nil {
		return false, nil
	}
	v, err := readPragmaBool(m.ctx, m.pristine, name)
	if err != nil {
		return false, migerr.Wrap(migerr.ExecutionFailure, err, "read pristine %s pragma", name)
	}
	return v, nil
}

func dropStatement(kind catalog.Kind, name string) string {
	switch kind {
	case catalog.Index:
		return `DROP INDEX ` + ident.Quote(name)
	case catalog.Trigger:
		return `DROP TRIGGER ` + ident.Quote(name)
	case catalog.View:
		return `DROP VIEW ` + ident.Quote(name)
	default:
		return ""
	}
}

// pragmaExec is the one place a pragma is ever written, and it enforces
// the whitelist spec.md §4.2 requires even though every caller in this
// file passes a hardcoded, already-safe name.
func pragmaExec(ctx context.Context, ex execQueryer, name, expr string) (sql.Result, error) {
	if !ident.IsAllowedPragma(name) {
		return nil, migerr.New(migerr.UnsafePragma, "Unsafe pragma name: %s", name)
	}
	return ex.ExecContext(ctx, fmt.Sprintf(`PRAGMA %s = %s`, name, expr))
}

func readPragmaBool(ctx context.Context, ex execQueryer, name string) (bool, error) {
	if !ident.IsAllowedPragma(name) {
		return false, migerr.New(migerr.UnsafePragma, "Unsafe pragma name: %s", name)
	}
	var v int
	if err := ex.QueryRowContext(ctx, `PRAGMA `+name).Scan(&v); err != nil {
		return false, err
	}
	return v != 0, nil
}

func readPragmaInt(ctx context.Context, ex execQueryer, name string) (int64, error) {
	if !ident.IsAllowedPragma(name) {
		return 0, migerr.New(migerr.UnsafePragma, "Unsafe pragma name: %s", name)
	}
	var v int64
	if err := ex.QueryRowContext(ctx, `PRAGMA `+name).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func restoreForeignKeys(ctx context.Context, live *sql.DB, origForeignKeys bool, log *slog.Logger) {
	if !origForeignKeys {
		return
	}
	if _, err := pragmaExec(ctx, live, "foreign_keys", "ON"); err != nil {
		log.Error("restore foreign_keys after rollback", "err", err)
	}
}

// reconcileForeignKeys is Phase E: foreign_keys cannot be toggled while
// a transaction is open, so the pristine-declared value is applied to
// live only after commit. If pristine's value matches what live started
// with, nothing changes and the change counter is left exactly where
// Phase C's commit left it — the spec's "rewind on no-op" rule, applied
// literally so a schema that only touches foreign_keys in a way that
// nets out to the original value never forces a VACUUM on its own.
func reconcileForeignKeys(ctx context.Context, live *sql.DB, origForeignKeys, pristineForeignKeys bool, counter *int) error {
	preReconcile := *counter
	if pristineForeignKeys == origForeignKeys {
		*counter = preReconcile
		return nil
	}
	expr := "OFF"
	if pristineForeignKeys {
		expr = "ON"
	}
	if _, err := pragmaExec(ctx, live, "foreign_keys", expr); err != nil {
		return err
	}
	*counter++
	return nil
}
