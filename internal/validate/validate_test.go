package validate

import (
	"testing"

	"github.com/arjunpatel/sqlitemigrate/internal/migerr"
)

func TestSchemaEmptyPasses(t *testing.T) {
	if err := Schema("   \n\t "); err != nil {
		t.Fatalf("expected empty schema to pass, got %v", err)
	}
}

func TestSchemaRejectsAttach(t *testing.T) {
	err := Schema(`ATTACH DATABASE 'x' AS y;`)
	assertKind(t, err, migerr.InvalidSchema)
}

func TestSchemaRejectsDetach(t *testing.T) {
	err := Schema(`DETACH DATABASE y;`)
	assertKind(t, err, migerr.InvalidSchema)
}

func TestSchemaRejectsUnsafePragma(t *testing.T) {
	err := Schema(`PRAGMA journal_mode = WAL;`)
	assertKind(t, err, migerr.InvalidSchema)
}

func TestSchemaAllowsWhitelistedPragma(t *testing.T) {
	if err := Schema(`CREATE TABLE foo(id INTEGER); PRAGMA user_version = 1;`); err != nil {
		t.Fatalf("expected whitelisted pragma to pass, got %v", err)
	}
}

func assertKind(t *testing.T, err error, kind migerr.Kind) {
	t.Helper()
	me, ok := err.(*migerr.Error)
	if !ok {
		t.Fatalf("expected *migerr.Error, got %T (%v)", err, err)
	}
	if me.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, me.Kind, me)
	}
}
