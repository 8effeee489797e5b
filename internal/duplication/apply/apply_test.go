package apply

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/backup"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

func newTestEngine(t *testing.T) (*rewrite.Engine, string) {
	t.Helper()
	srcDir := t.TempDir()
	backupDir := t.TempDir()
	return rewrite.NewEngine(backup.New(backupDir)), srcDir
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const dupBody = "package a\n\nfunc dupA() int {\n\treturn 1 + 1\n}\n"

func lineRange(startLine, endLine int) matcher.Range {
	return matcher.Range{Start: matcher.Position{Line: startLine}, End: matcher.Position{Line: endLine}}
}

func TestApplyAppliesNonConflictingCandidates(t *testing.T) {
	engine, srcDir := newTestEngine(t)
	pathA := filepath.Join(srcDir, "a.go")
	pathB := filepath.Join(srcDir, "b.go")
	pathShared := filepath.Join(srcDir, "shared.go")
	writeSource(t, pathA, dupBody)
	writeSource(t, pathB, "package a\n\nfunc dupB() int {\n\treturn 1 + 1\n}\n")
	writeSource(t, pathShared, "package a\n")

	candidates := []Candidate{
		{
			GroupID:  "g1",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathA, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup()"},
			},
			Helper: &Helper{Path: pathShared, Text: "func Dup() int {\n\treturn 1 + 1\n}"},
		},
		{
			GroupID:  "g2",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathB, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup()"},
			},
		},
	}

	result, err := Apply(context.Background(), engine, nil, candidates, Options{Mode: PartialSuccess, ValidateSyntax: true})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, StatusApplied, result.Reports[0].Status)
	assert.Equal(t, StatusApplied, result.Reports[1].Status)
	assert.NotEmpty(t, result.BackupID)

	aContent, _ := os.ReadFile(pathA)
	assert.Contains(t, string(aContent), "return Dup()")
	sharedContent, _ := os.ReadFile(pathShared)
	assert.Contains(t, string(sharedContent), "func Dup() int {")
	bContent, _ := os.ReadFile(pathB)
	assert.Contains(t, string(bContent), "return Dup()")
}

func TestApplySkipsValidationFailureAndContinues(t *testing.T) {
	engine, srcDir := newTestEngine(t)
	pathA := filepath.Join(srcDir, "a.go")
	pathB := filepath.Join(srcDir, "b.go")
	writeSource(t, pathA, dupBody)
	writeSource(t, pathB, "package a\n\nfunc dupB() int {\n\treturn 1 + 1\n}\n")

	candidates := []Candidate{
		{
			GroupID:  "broken",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				// missing closing paren: unbalanced, must fail validation.
				{Path: pathA, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup("},
			},
		},
		{
			GroupID:  "ok",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathB, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup()"},
			},
		},
	}

	result, err := Apply(context.Background(), engine, nil, candidates, Options{Mode: PartialSuccess, ValidateSyntax: true})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, StatusSkippedValidation, result.Reports[0].Status)
	assert.NotEmpty(t, result.Reports[0].Reason)
	assert.Equal(t, StatusApplied, result.Reports[1].Status)

	aContent, _ := os.ReadFile(pathA)
	assert.Equal(t, dupBody, string(aContent), "a candidate that failed validation must not touch disk")
	bContent, _ := os.ReadFile(pathB)
	assert.Contains(t, string(bContent), "return Dup()")
}

func TestApplyAllOrNothingAbortsOnAnyValidationFailure(t *testing.T) {
	engine, srcDir := newTestEngine(t)
	pathA := filepath.Join(srcDir, "a.go")
	pathB := filepath.Join(srcDir, "b.go")
	bodyB := "package a\n\nfunc dupB() int {\n\treturn 1 + 1\n}\n"
	writeSource(t, pathA, dupBody)
	writeSource(t, pathB, bodyB)

	candidates := []Candidate{
		{
			GroupID:  "broken",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathA, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup("},
			},
		},
		{
			GroupID:  "ok",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathB, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup()"},
			},
		},
	}

	result, err := Apply(context.Background(), engine, nil, candidates, Options{Mode: AllOrNothing, ValidateSyntax: true})
	require.NoError(t, err)
	for _, r := range result.Reports {
		assert.Equal(t, StatusSkippedValidation, r.Status)
	}

	aContent, _ := os.ReadFile(pathA)
	assert.Equal(t, dupBody, string(aContent))
	bContent, _ := os.ReadFile(pathB)
	assert.Equal(t, bodyB, string(bContent), "all-or-nothing must leave the otherwise-valid candidate unapplied too")
}

func TestApplySkipsConflictingCandidate(t *testing.T) {
	engine, srcDir := newTestEngine(t)
	pathA := filepath.Join(srcDir, "a.go")
	writeSource(t, pathA, dupBody)

	candidates := []Candidate{
		{
			GroupID:  "first",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathA, Range: lineRange(4, 5), Language: langs.Go, NewText: "\treturn Dup()"},
			},
		},
		{
			GroupID:  "second",
			Strategy: StrategyExtractFunction,
			Replacements: []Replacement{
				{Path: pathA, Range: lineRange(3, 5), Language: langs.Go, NewText: "func dupA() int { return Dup() }"},
			},
		},
	}

	result, err := Apply(context.Background(), engine, nil, candidates, Options{Mode: PartialSuccess, ValidateSyntax: true})
	require.NoError(t, err)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, StatusApplied, result.Reports[0].Status)
	assert.Equal(t, StatusSkippedConflict, result.Reports[1].Status)
}

func TestCandidateFilesDedupsHelperAndReplacementPaths(t *testing.T) {
	c := Candidate{
		Replacements: []Replacement{
			{Path: "a.go"},
			{Path: "a.go"},
			{Path: "b.go"},
		},
		Helper: &Helper{Path: "a.go"},
	}
	assert.Equal(t, []string{"a.go", "b.go"}, c.Files())
}

func TestInsertImportAddsToBlockOnceAndSkipsIfPresent(t *testing.T) {
	src := "package a\n\nimport (\n\t\"fmt\"\n)\n"
	out := insertImport(src, "strings")
	assert.Contains(t, out, `"strings"`)
	assert.Contains(t, out, `"fmt"`)

	out2 := insertImport(out, "strings")
	assert.Equal(t, 1, countOccurrences(out2, `"strings"`))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}

func TestLockerLockSerializesOverlappingPaths(t *testing.T) {
	locker := NewLocker()
	unlock := locker.Lock([]string{"a.go", "b.go"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		unlock2 := locker.Lock([]string{"b.go", "c.go"})
		unlock2()
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second Lock should have blocked on the shared b.go mutex")
	default:
	}
	unlock()
	<-done
}
