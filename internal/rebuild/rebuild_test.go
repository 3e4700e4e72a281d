package rebuild

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/arjunpatel/sqlitemigrate/internal/catalog"
)

func open(t *testing.T) *sql.DB {
	t.Helper()
	handle, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return handle
}

func TestTablePreservesDataAndRecreatesDependents(t *testing.T) {
	ctx := context.Background()
	handle := open(t)

	mustExec(t, handle, `CREATE TABLE foo (id INTEGER PRIMARY KEY, name TEXT)`)
	mustExec(t, handle, `CREATE INDEX idx_foo_name ON foo (name)`)
	mustExec(t, handle, `CREATE TRIGGER trg_foo AFTER INSERT ON foo BEGIN SELECT 1; END`)
	mustExec(t, handle, `INSERT INTO foo (id, name) VALUES (1, 'Alice')`)

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	pristineSQL := `CREATE TABLE foo (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)`
	pristineDeps := []catalog.Object{
		{Kind: catalog.Index, Name: "idx_foo_name", TblName: "foo", SQL: `CREATE INDEX idx_foo_name ON foo (name)`},
		{Kind: catalog.Trigger, Name: "trg_foo", TblName: "foo", SQL: `CREATE TRIGGER trg_foo AFTER INSERT ON foo BEGIN SELECT 1; END`},
	}

	if err := Table(ctx, tx, "foo", pristineSQL, pristineDeps, []string{"id", "name"}); err != nil {
		t.Fatalf("Table: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var name string
	var age sql.NullInt64
	if err := handle.QueryRow(`SELECT name, age FROM foo WHERE id = 1`).Scan(&name, &age); err != nil {
		t.Fatalf("select after rebuild: %v", err)
	}
	if name != "Alice" || age.Valid {
		t.Fatalf("expected preserved name Alice and NULL age, got name=%q age=%v", name, age)
	}

	deps, err := catalog.DependenciesOf(ctx, handle, "foo")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("expected index and trigger recreated, got %+v", deps)
	}
}

func TestRenameTableHandlesPunctuatedQuotedNames(t *testing.T) {
	createSQL := `CREATE TABLE "my-table" ("user name" TEXT, "email@address" TEXT)`
	got := renameTable(createSQL, "my-table", "my-table_migration_new")
	want := `CREATE TABLE "my-table_migration_new" ("user name" TEXT, "email@address" TEXT)`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func mustExec(t *testing.T, handle *sql.DB, query string) {
	t.Helper()
	if _, err := handle.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
