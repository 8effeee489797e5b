package obslog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteEmitsCounters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Complete("find_code", "executor.Run", 15*time.Millisecond, map[string]int{"matches": 3})

	line := strings.TrimSpace(buf.String())
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, "find_code", ev.Tool)
	assert.Equal(t, "completed", ev.Status)
	assert.Equal(t, 3, ev.Counters["matches"])
	assert.Equal(t, int64(15), ev.DurationMs)
}

func TestFailedEmitsError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Failed("rename_symbol", "refactor.Rename", time.Second, assertError{"conflict"})

	var ev Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev))
	assert.Equal(t, "failed", ev.Status)
	assert.Equal(t, "conflict", ev.Error)
}

func TestStartSuppressedAboveInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Start("search", "executor.Run")
	assert.Empty(t, buf.String())
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}
