package quality

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

func writeArrayFixture(t *testing.T, line string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ast-grep.sh")
	content := "#!/bin/sh\necho '" + line + "'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestLoadRulesParsesYAML(t *testing.T) {
	data := []byte(`
- id: no-fmt-println
  language: go
  pattern: fmt.Println($$$ARGS)
  message: use the structured logger instead of fmt.Println
  severity: warning
`)
	rules, err := LoadRules(data)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "no-fmt-println", rules[0].ID)
	assert.Equal(t, langs.Go, rules[0].Language)
	assert.Equal(t, SeverityWarning, rules[0].Severity)
}

func TestLoadRulesRejectsMalformedYAML(t *testing.T) {
	_, err := LoadRules([]byte("not: [valid"))
	require.Error(t, err)
}

func TestLintReportsOneFindingPerMatch(t *testing.T) {
	srcDir := t.TempDir()
	a := filepath.Join(srcDir, "a.go")
	require.NoError(t, os.WriteFile(a, []byte("package p\nfunc f() { fmt.Println(\"x\") }\n"), 0o644))

	line := fmt.Sprintf(`[{"file":%q,"text":"fmt.Println(\"x\")","range":{"start":{"line":1,"column":10},"end":{"line":1,"column":30}}}]`, a)
	bin := writeArrayFixture(t, line)

	rules := []LintRule{{ID: "no-fmt-println", Language: langs.Go, Pattern: "fmt.Println($$$ARGS)", Message: "use the logger", Severity: SeverityWarning}}

	exec := executor.New(bin, "")
	findings, err := Lint(context.Background(), exec, []string{srcDir}, rules, LintOptions{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "no-fmt-println", findings[0].RuleID)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, a, findings[0].Path)
}

func TestLintSkipsRuleWithNoMatchingFiles(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.py"), []byte("x = 1\n"), 0o644))

	bin := writeArrayFixture(t, `[]`)
	rules := []LintRule{{ID: "go-only", Language: langs.Go, Pattern: "fmt.Println($$$ARGS)", Severity: SeverityInfo}}

	exec := executor.New(bin, "")
	findings, err := Lint(context.Background(), exec, []string{srcDir}, rules, LintOptions{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}
