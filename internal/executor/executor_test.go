package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/cancel"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// writeFixtureScript writes an executable shell script standing in for
// the ast-grep binary and returns its path.
func writeFixtureScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ast-grep.sh")
	content := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestRunMatcherMissing(t *testing.T) {
	e := New(filepath.Join(t.TempDir(), "does-not-exist"), "")
	_, err := e.Run(context.Background(), "scan", []string{"--pattern", "foo"}, nil)
	require.Error(t, err)
}

func TestRunSuccess(t *testing.T) {
	bin := writeFixtureScript(t, `echo '[{"file":"a.py","text":"foo()","range":{"start":{"line":0,"column":0},"end":{"line":0,"column":5}}}]'`)
	e := New(bin, "")
	matches, err := e.RunMatches(context.Background(), []string{"--pattern", "foo()"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.py", matches[0].File)
}

func TestRunNonZeroExit(t *testing.T) {
	bin := writeFixtureScript(t, `echo "bad rule" 1>&2; exit 2`)
	e := New(bin, "")
	_, err := e.Run(context.Background(), "scan", nil, nil)
	require.Error(t, err)
}

func TestRunAppendsConfigFlag(t *testing.T) {
	bin := writeFixtureScript(t, `
if echo "$@" | grep -q -- "--config /tmp/cfg.yml"; then
  echo "[]"
else
  echo "missing config flag" 1>&2
  exit 3
fi
`)
	e := New(bin, "/tmp/cfg.yml")
	_, err := e.Run(context.Background(), "scan", []string{"--pattern", "x"}, nil)
	require.NoError(t, err)
}

func TestStreamEarlyTermination(t *testing.T) {
	// Emits 10 matches, one per line; caller stops after 3.
	bin := writeFixtureScript(t, `
i=0
while [ $i -lt 10 ]; do
  echo "{\"file\":\"f$i.py\",\"text\":\"x\",\"range\":{\"start\":{\"line\":0,\"column\":0},\"end\":{\"line\":0,\"column\":1}}}"
  i=$((i+1))
done
sleep 2
`)
	e := New(bin, "")

	var got []matcher.MatchRecord
	start := time.Now()
	summary, err := e.Stream(context.Background(), "scan", nil, StreamOptions{
		MaxResults: 3,
		OnMatch: func(m matcher.MatchRecord) bool {
			got = append(got, m)
			return true
		},
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.MatchCount)
	assert.True(t, summary.Cancelled)
	assert.Len(t, got, 3)
	assert.Less(t, elapsed, 3*time.Second, "early termination should not wait for the sleep to finish")
}

func TestStreamCancelToken(t *testing.T) {
	bin := writeFixtureScript(t, `
i=0
while [ $i -lt 100 ]; do
  echo "{\"file\":\"f.py\",\"text\":\"x\",\"range\":{\"start\":{\"line\":0,\"column\":0},\"end\":{\"line\":0,\"column\":1}}}"
  i=$((i+1))
  sleep 0.01
done
`)
	e := New(bin, "")
	tok := cancel.New(context.Background())

	count := 0
	_, err := e.Stream(context.Background(), "scan", nil, StreamOptions{
		Cancel: tok,
		OnMatch: func(m matcher.MatchRecord) bool {
			count++
			if count == 5 {
				tok.Stop()
			}
			return true
		},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 5)
}

func TestStreamMalformedLinesBelowThreshold(t *testing.T) {
	bin := writeFixtureScript(t, `
echo "not json"
echo "{\"file\":\"a.py\",\"text\":\"x\",\"range\":{\"start\":{\"line\":0,\"column\":0},\"end\":{\"line\":0,\"column\":1}}}"
echo "{\"file\":\"b.py\",\"text\":\"x\",\"range\":{\"start\":{\"line\":0,\"column\":0},\"end\":{\"line\":0,\"column\":1}}}"
`)
	e := New(bin, "")
	summary, err := e.Stream(context.Background(), "scan", nil, StreamOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MatchCount)
	assert.Equal(t, 1, summary.MalformedLines)
}

func TestStreamMalformedLinesAboveThreshold(t *testing.T) {
	bin := writeFixtureScript(t, `
echo "not json 1"
echo "not json 2"
echo "{\"file\":\"a.py\",\"text\":\"x\",\"range\":{\"start\":{\"line\":0,\"column\":0},\"end\":{\"line\":0,\"column\":1}}}"
`)
	e := New(bin, "")
	_, err := e.Stream(context.Background(), "scan", nil, StreamOptions{})
	require.Error(t, err)
}

func TestFilterPathsExtensionAndSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("print(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("not python"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.py"), []byte(make([]byte, 1000)), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "v.py"), []byte("x"), 0o644))

	paths, err := FilterPaths([]string{dir}, langs.Python, FilterOptions{
		MaxFileSize:  500,
		ExcludeGlobs: []string{"vendor/**"},
	})
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"a.py"}, names)
}
