// Package catalog reads sqlite_master and PRAGMA table_info off either
// the live transaction or the pristine database — the "Schema
// Inspector" of spec.md §4.3. It never mutates anything.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arjunpatel/sqlitemigrate/internal/ident"
)

// Kind is one of the four object kinds sqlite_master tracks.
type Kind string

const (
	Table   Kind = "table"
	Index   Kind = "index"
	Trigger Kind = "trigger"
	View    Kind = "view"
)

// Object is a single sqlite_master row.
type Object struct {
	Kind    Kind
	Name    string
	TblName string
	SQL     string
}

// Queryer is satisfied by *sql.DB and *sql.Tx — every read in this
// package runs against whichever of those the caller holds.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListObjects returns every sqlite_master row of the given kind,
// ordered by name. sqlite_sequence — the autoincrement bookkeeping
// table SQLite maintains for its own purposes — is excluded from table
// listings; it is never part of anyone's declared schema.
func ListObjects(ctx context.Context, q Queryer, kind Kind) ([]Object, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name, tbl_name, COALESCE(sql, '') FROM sqlite_master WHERE type = ? ORDER BY name`,
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s objects: %w", kind, err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		o := Object{Kind: kind}
		if err := rows.Scan(&o.Name, &o.TblName, &o.SQL); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		if kind == Table && o.Name == "sqlite_sequence" {
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ColumnsOf returns table's column names, in PRAGMA table_info's
// declaration order.
func ColumnsOf(ctx context.Context, q Queryer, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `PRAGMA table_info(`+ident.Quote(table)+`)`)
	if err != nil {
		return nil, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info(%s) row: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// DependenciesOf returns every index, trigger and view whose tbl_name
// is table, ordered by name. Auto-created indices from PRIMARY
// KEY/UNIQUE constraints have a null sql column and are skipped — they
// reappear on their own when the table is recreated.
func DependenciesOf(ctx context.Context, q Queryer, table string) ([]Object, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT type, name, tbl_name, sql FROM sqlite_master
		 WHERE tbl_name = ? AND type IN ('index', 'trigger', 'view') AND sql IS NOT NULL AND sql != ''
		 ORDER BY name`, table)
	if err != nil {
		return nil, fmt.Errorf("dependencies of %s: %w", table, err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var o Object
		var kind string
		if err := rows.Scan(&kind, &o.Name, &o.TblName, &o.SQL); err != nil {
			return nil, fmt.Errorf("scan dependency of %s: %w", table, err)
		}
		o.Kind = Kind(kind)
		out = append(out, o)
	}
	return out, rows.Err()
}
