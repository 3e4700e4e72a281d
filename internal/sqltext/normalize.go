// Package sqltext canonicalizes SQL text so two lexically different but
// semantically identical CREATE statements compare equal.
package sqltext

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*\n?`)
	whitespace   = regexp.MustCompile(`\s+`)
	quotedPlain  = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)
	punctuations = []string{"(", ")", ","}
)

// Normalize canonicalizes sql per the five steps spec.md §4.1 lists, in
// order: strip line comments, collapse whitespace runs, delete
// whitespace around ( ) and ,, strip double quotes from purely-word
// identifiers, trim. Two CREATE statements are equivalent iff their
// normalized forms are byte-equal.
//
// Identifiers containing punctuation — e.g. "my-table" — do not match
// quotedPlain, so they keep their quotes and keep round-tripping.
func Normalize(sql string) string {
	s := lineComment.ReplaceAllString(sql, " ")
	s = whitespace.ReplaceAllString(s, " ")
	for _, p := range punctuations {
		s = strings.ReplaceAll(s, " "+p, p)
		s = strings.ReplaceAll(s, p+" ", p)
	}
	s = quotedPlain.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}
