// Package refactor implements the refactoring engine (C6):
// scope-aware symbol rename and parameter/return-inferring function
// extraction, both delegating to the rewrite engine (C4) for the
// actual atomic, validated, backup-guarded write.
package refactor

import (
	"context"
	"os"
	"sort"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/refactor/scope"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

// ScopeFilterKind is the `scope` argument to rename_symbol.
type ScopeFilterKind int

const (
	ScopeProject ScopeFilterKind = iota
	ScopeFile
	ScopeFunction
)

// ScopeFilter narrows a rename to a file or a single function within a
// file; ScopeProject (the zero value) renames across every root.
type ScopeFilter struct {
	Kind ScopeFilterKind
	Path string
	Line int // 1-based, used with ScopeFunction to pick the enclosing function
}

// RenameStatus is the outcome of a rename_symbol call.
type RenameStatus string

const (
	StatusApplied  RenameStatus = "applied"
	StatusConflict RenameStatus = "conflict"
	StatusDryRun   RenameStatus = "dry_run"
)

// RenameResult is rename_symbol's return value.
type RenameResult struct {
	Status    RenameStatus
	Conflicts []scope.Conflict
	Diffs     []rewrite.FileDiff
	Applied   []string
	BackupID  string
}

// RenameSymbol resolves every reference to old across roots, filters
// by the requested scope, runs conflict detection, and, absent
// conflicts, replaces every surviving reference (including import/
// export statements naming old) with new. The operation is atomic
// across files: either every reference is updated, or (on conflict,
// validation failure, or write failure) nothing changes.
func RenameSymbol(ctx context.Context, exec *executor.Executor, engine *rewrite.Engine, roots []string, old, new string, lang langs.Language, filter ScopeFilter, dryRun bool) (RenameResult, error) {
	oldRefs, err := scope.FindReferences(ctx, exec, roots, old, lang)
	if err != nil {
		return RenameResult{}, err
	}
	oldRefs = applyScopeFilter(oldRefs, filter, lang)
	if len(oldRefs) == 0 {
		return RenameResult{Status: StatusApplied}, nil
	}

	newRefs, err := scope.FindReferences(ctx, exec, roots, new, lang)
	if err != nil {
		return RenameResult{}, err
	}
	newRefs = applyScopeFilter(newRefs, filter, lang)

	trees, err := buildTrees(oldRefs, newRefs, lang)
	if err != nil {
		return RenameResult{}, err
	}

	conflicts := scope.DetectConflicts(oldRefs, newRefs, trees, old, new, lang)
	if len(conflicts) > 0 {
		return RenameResult{Status: StatusConflict, Conflicts: conflicts}, nil
	}

	byPath := map[string][]scope.Reference{}
	for _, ref := range oldRefs {
		byPath[ref.Path] = append(byPath[ref.Path], ref)
	}

	var edits []rewrite.Edit
	for path, refs := range byPath {
		before, err := os.ReadFile(path)
		if err != nil {
			return RenameResult{}, errors.New(errors.KindIO, "refactor.RenameSymbol", err).WithPath(path)
		}
		after := replaceReferences(before, refs, new)
		edits = append(edits, rewrite.Edit{
			Path:     path,
			NewBytes: after,
			Language: lang,
			Cause:    "rename:" + old + "->" + new,
		})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Path < edits[j].Path })
	plan := rewrite.Plan{Edits: edits}

	if dryRun {
		diffs, err := engine.Preview(plan)
		if err != nil {
			return RenameResult{}, err
		}
		return RenameResult{Status: StatusDryRun, Diffs: diffs}, nil
	}

	result, err := engine.Apply(plan, rewrite.ApplyOptions{MakeBackup: true, ValidateSyntax: true})
	if err != nil {
		return RenameResult{}, err
	}
	return RenameResult{Status: StatusApplied, Applied: result.AppliedPaths, BackupID: result.BackupID}, nil
}

func applyScopeFilter(refs []scope.Reference, filter ScopeFilter, lang langs.Language) []scope.Reference {
	switch filter.Kind {
	case ScopeProject:
		return refs
	case ScopeFile:
		var out []scope.Reference
		for _, r := range refs {
			if r.Path == filter.Path {
				out = append(out, r)
			}
		}
		return out
	case ScopeFunction:
		content, err := os.ReadFile(filter.Path)
		if err != nil {
			return nil
		}
		tree := scope.Build(scope.ScanAnchors(content, lang), matcher.Position{Line: countLines(content) + 1, Column: 1})
		fn := enclosingFunction(tree.InnermostAt(matcher.Position{Line: filter.Line, Column: 1}))
		if fn == nil {
			return nil
		}
		var out []scope.Reference
		for _, r := range refs {
			s, e := r.Range.Start, fn.Range.End
			if r.Path == filter.Path && s.Line >= fn.Range.Start.Line && (s.Line < e.Line || s.Line == e.Line && s.Column < e.Column) {
				out = append(out, r)
			}
		}
		return out
	default:
		return refs
	}
}

func buildTrees(oldRefs, newRefs []scope.Reference, lang langs.Language) (map[string]*scope.Tree, error) {
	paths := map[string]bool{}
	for _, r := range oldRefs {
		paths[r.Path] = true
	}
	for _, r := range newRefs {
		paths[r.Path] = true
	}

	trees := make(map[string]*scope.Tree, len(paths))
	for path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(errors.KindIO, "refactor.buildTrees", err).WithPath(path)
		}
		anchors := scope.ScanAnchors(content, lang)
		trees[path] = scope.Build(anchors, matcher.Position{Line: countLines(content) + 1, Column: 1})
	}
	return trees, nil
}

func countLines(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}
