package refactor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/backup"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

func TestExtractFunctionGoWithParamsAndReturn(t *testing.T) {
	srcDir := t.TempDir()
	backupDir := t.TempDir()
	path := filepath.Join(srcDir, "a.go")
	src := "package p\n\nfunc Foo(x int) int {\n\ty := x + 1\n\tz := y * 2\n\treturn z\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine := rewrite.NewEngine(backup.New(backupDir))
	result, err := ExtractFunction(engine, path, 4, 5, "compute", langs.Go, false)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, result.Status)

	got, _ := os.ReadFile(path)
	content := string(got)
	assert.Contains(t, content, "func compute(")
	assert.Contains(t, content, "compute(x)")
}

func TestExtractFunctionRefusesSelectionOutsideFunction(t *testing.T) {
	srcDir := t.TempDir()
	backupDir := t.TempDir()
	path := filepath.Join(srcDir, "a.go")
	src := "package p\n\nvar x = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine := rewrite.NewEngine(backup.New(backupDir))
	_, err := ExtractFunction(engine, path, 3, 3, "compute", langs.Go, false)
	require.Error(t, err)
}

func TestExtractFunctionRefusesEscapingReturn(t *testing.T) {
	srcDir := t.TempDir()
	backupDir := t.TempDir()
	path := filepath.Join(srcDir, "a.go")
	src := "package p\n\nfunc Foo() int {\n\tx := 1\n\treturn x\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine := rewrite.NewEngine(backup.New(backupDir))
	_, err := ExtractFunction(engine, path, 4, 5, "compute", langs.Go, false)
	require.Error(t, err)
}

func TestExtractFunctionDryRunLeavesDiskUntouched(t *testing.T) {
	srcDir := t.TempDir()
	backupDir := t.TempDir()
	path := filepath.Join(srcDir, "a.go")
	src := "package p\n\nfunc Foo(x int) int {\n\ty := x + 1\n\tz := y * 2\n\treturn z\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	engine := rewrite.NewEngine(backup.New(backupDir))
	result, err := ExtractFunction(engine, path, 4, 5, "compute", langs.Go, true)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, result.Status)

	got, _ := os.ReadFile(path)
	assert.Equal(t, src, string(got))
}
