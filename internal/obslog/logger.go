// Package obslog emits the structured {tool, duration_ms, status,
// counters} events the observability section requires at the start,
// completion, and error of every tool invocation. It generalizes the
// teacher's ad hoc diagnostic Printf calls into a small structured
// logger, built on the standard library's log package since no example
// in the corpus pulls in a dedicated structured-logging dependency.
package obslog

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level is a coarse log severity, configured via Config.LogLevel.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Event is one structured log record.
type Event struct {
	Tool       string         `json:"tool"`
	Op         string         `json:"op,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Status     string         `json:"status"`
	Counters   map[string]int `json:"counters,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"ts"`
}

// Logger emits Events as single-line JSON to an underlying io.Writer.
type Logger struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
}

// New creates a Logger writing to w at the given level. Passing a nil
// w defaults to os.Stderr, keeping diagnostic output off stdout (which
// the MCP stdio transport reserves for protocol frames).
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: log.New(w, "", 0), level: level}
}

// Start logs the beginning of a tool invocation.
func (l *Logger) Start(tool, op string) {
	l.emit(Event{Tool: tool, Op: op, Status: "started", Timestamp: time.Now()})
}

// Complete logs a successful tool invocation with its duration and any
// result counters (e.g. match_count, files_changed).
func (l *Logger) Complete(tool, op string, dur time.Duration, counters map[string]int) {
	l.emit(Event{
		Tool: tool, Op: op, Status: "completed",
		DurationMs: dur.Milliseconds(), Counters: counters, Timestamp: time.Now(),
	})
}

// Failed logs a tool invocation that returned an error.
func (l *Logger) Failed(tool, op string, dur time.Duration, err error) {
	l.emit(Event{
		Tool: tool, Op: op, Status: "failed",
		DurationMs: dur.Milliseconds(), Error: err.Error(), Timestamp: time.Now(),
	})
}

func (l *Logger) emit(ev Event) {
	if l.level > LevelInfo && ev.Status == "started" {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Println(string(data))
}

// ProgressFunc matches the external interface's progress callback shape:
// (stage_name, fraction_complete in [0,1]).
type ProgressFunc func(stage string, fraction float64)
