package duplication

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

func TestDetectEndToEndGroupsNearDuplicates(t *testing.T) {
	srcDir := t.TempDir()
	a := filepath.Join(srcDir, "a.go")
	b := filepath.Join(srcDir, "b.go")
	require.NoError(t, os.WriteFile(a, []byte("package p\nfunc add(a, b int) int {\n\ttotal := a + b\n\treturn total\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("package p\nfunc add(x, y int) int {\n\ttotal := x + y\n\treturn total\n}\n"), 0o644))

	lineFor := func(path, text string) string {
		return fmt.Sprintf(`{"file":%q,"text":%q,"range":{"start":{"line":1,"column":0},"end":{"line":3,"column":1}}}`, path, text)
	}
	lines := []string{
		lineFor(a, "func add(a, b int) int {\n\ttotal := a + b\n\treturn total\n}"),
		lineFor(b, "func add(x, y int) int {\n\ttotal := x + y\n\treturn total\n}"),
	}
	bin := writeStreamFixture(t, lines)

	exec := executor.New(bin, "")
	groups, err := Detect(context.Background(), exec, DetectOptions{
		Roots:     []string{srcDir},
		Language:  langs.Go,
		Kind:      KindFunction,
		MinLines:  1,
		Threshold: DefaultThreshold,
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 2)
}

func TestDetectNoConstructsReturnsNoGroups(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.go"), []byte("package p\n"), 0o644))

	bin := writeStreamFixture(t, nil)
	exec := executor.New(bin, "")

	groups, err := Detect(context.Background(), exec, DetectOptions{
		Roots:    []string{srcDir},
		Language: langs.Go,
		Kind:     KindFunction,
		MinLines: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, groups)
}
