// Package plan implements the Diff Planner from spec.md §4.5: it
// classifies pristine objects against live ones into created/dropped/
// modified sets, and splits a table's column sets into removed/common.
package plan

import (
	"sort"

	"github.com/arjunpatel/sqlitemigrate/internal/catalog"
	"github.com/arjunpatel/sqlitemigrate/internal/sqltext"
)

// Diff classifies one kind of object (table, index, trigger or view)
// between live and pristine:
//
//   - created  — in pristine, not in live.
//   - dropped  — in live, not in pristine.
//   - modified — in both, but normalized sql differs. Carries the
//     pristine (authoritative) Object, since that is what every caller
//     needs to re-create.
//
// If a live object's sql is empty, it is never classified as modified —
// spec.md §4.5 leaves that case to the recreator's own column diff.
func Diff(live, pristine []catalog.Object) (created, dropped, modified []catalog.Object) {
	liveByName := byName(live)
	pristineByName := byName(pristine)

	for _, name := range sortedNames(pristineByName) {
		p := pristineByName[name]
		l, ok := liveByName[name]
		switch {
		case !ok:
			created = append(created, p)
		case l.SQL == "":
			// treated as not-modified; rebuild path will diff columns
		case sqltext.Normalize(l.SQL) != sqltext.Normalize(p.SQL):
			modified = append(modified, p)
		}
	}

	for _, name := range sortedNames(liveByName) {
		if _, ok := pristineByName[name]; !ok {
			dropped = append(dropped, liveByName[name])
		}
	}
	return
}

// ColumnDiff splits live's and pristine's column lists — both in
// PRAGMA table_info order — into removed (live \ pristine) and common
// (live ∩ pristine), the latter in live's order since that is the
// deterministic order the data-copy INSERT in spec.md §4.6 step 5 uses.
func ColumnDiff(live, pristine []string) (removed, common []string) {
	pset := make(map[string]bool, len(pristine))
	for _, c := range pristine {
		pset[c] = true
	}
	for _, c := range live {
		if pset[c] {
			common = append(common, c)
		} else {
			removed = append(removed, c)
		}
	}
	return
}

func byName(objs []catalog.Object) map[string]catalog.Object {
	m := make(map[string]catalog.Object, len(objs))
	for _, o := range objs {
		m[o.Name] = o
	}
	return m
}

func sortedNames(m map[string]catalog.Object) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
