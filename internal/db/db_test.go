package db

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// NewTestDB creates a private in-memory sqlite database. The name is
// randomized with a uuid so parallel tests never collide on the same
// "cache=shared" memory instance.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	handle, err := Open(fmt.Sprintf("file:testdb-%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("NewTestDB: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return handle
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.db"

	handle, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	if _, err := handle.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	// Reopening the same file should see what was written.
	handle2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer handle2.Close()

	var name string
	if err := handle2.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='t'`).Scan(&name); err != nil {
		t.Errorf("table t not found after reopen: %v", err)
	}
}

func TestOpenPristineIsolated(t *testing.T) {
	a, err := OpenPristine(uuid.NewString())
	if err != nil {
		t.Fatalf("OpenPristine a: %v", err)
	}
	defer a.Close()
	b, err := OpenPristine(uuid.NewString())
	if err != nil {
		t.Fatalf("OpenPristine b: %v", err)
	}
	defer b.Close()

	if _, err := a.Exec(`CREATE TABLE only_in_a (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create in a: %v", err)
	}

	var name string
	err = b.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='only_in_a'`).Scan(&name)
	if err == nil {
		t.Fatal("expected only_in_a to be absent from the isolated pristine b")
	}
}
