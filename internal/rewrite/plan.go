// Package rewrite implements the rewrite engine (C4): preview diffs,
// atomic multi-file apply with optional syntax validation, and
// backup-guarded rollback on failure.
package rewrite

import "github.com/astgrepmcp/astgrepmcp/internal/langs"

// Edit is one file's change within a Plan: its target path, the full
// replacement bytes, the language (for syntax validation), and a cause
// describing what produced it.
type Edit struct {
	Path     string
	NewBytes []byte
	Language langs.Language
	Cause    string // e.g. "pattern:foo() -> bar()" or "rename:old->new"
}

// Plan is an ordered, enumerable set of file edits produced before any
// filesystem write, per the data model.
type Plan struct {
	Edits []Edit
}

// Paths returns the distinct file paths touched by the plan, in the
// order they first appear.
func (p Plan) Paths() []string {
	seen := make(map[string]bool, len(p.Edits))
	var out []string
	for _, e := range p.Edits {
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	return out
}
