package scope

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

func writeFixtureScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ast-grep.sh")
	content := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestFindReferencesClassifiesDefinitionAndUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	src := "package p\n\nfunc bar() {\n\tbar()\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	payload := fmt.Sprintf(`[
		{"file":%q,"text":"bar","range":{"start":{"line":2,"column":5},"end":{"line":2,"column":8}}},
		{"file":%q,"text":"bar","range":{"start":{"line":3,"column":1},"end":{"line":3,"column":4}}}
	]`, path, path)
	bin := writeFixtureScript(t, "echo '"+payload+"'")

	exec := executor.New(bin, "")
	refs, err := FindReferences(context.Background(), exec, []string{dir}, "bar", langs.Go)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, Definition, refs[0].Kind)
	assert.Equal(t, Use, refs[1].Kind)
}

func TestFindReferencesExcludesStringLiterals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	src := "package p\n\nvar msg = \"bar is a word\"\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	payload := fmt.Sprintf(`[{"file":%q,"text":"bar","range":{"start":{"line":2,"column":11},"end":{"line":2,"column":14}}}]`, path)
	bin := writeFixtureScript(t, "echo '"+payload+"'")

	exec := executor.New(bin, "")
	refs, err := FindReferences(context.Background(), exec, []string{dir}, "bar", langs.Go)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
