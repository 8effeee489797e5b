// Package metrics implements a key-value history of complexity
// measurements keyed by (project, path, function), surviving restarts
// as an append-only on-disk log with a lock-free in-memory index.
package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one recorded measurement.
type Entry struct {
	Project      string    `json:"project"`
	Path         string    `json:"path"`
	Function     string    `json:"function"`
	Cyclomatic   int       `json:"cyclomatic"`
	Cognitive    int       `json:"cognitive"`
	NestingDepth int       `json:"nesting_depth"`
	Lines        int       `json:"lines"`
	ParamCount   int       `json:"param_count"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func key(project, path, function string) string {
	return project + "\x00" + path + "\x00" + function
}

// Store is a durable, append-only metrics history. Reads are served
// from a lock-free in-memory index (sync.Map); writes append to a
// JSON-lines file under dir and update the index.
type Store struct {
	index sync.Map // map[string][]Entry

	mu   sync.Mutex
	file *os.File
}

// Open loads an existing history file under dir/.metrics/history.jsonl
// (creating the directory and file if absent) and rebuilds the
// in-memory index from it.
func Open(dir string) (*Store, error) {
	metricsDir := filepath.Join(dir, ".metrics")
	if err := os.MkdirAll(metricsDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(metricsDir, "history.jsonl")

	s := &Store{}
	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			s.appendToIndex(e)
		}
		existing.Close()
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.file = f
	return s, nil
}

func (s *Store) appendToIndex(e Entry) {
	k := key(e.Project, e.Path, e.Function)
	existing, _ := s.index.LoadOrStore(k, []Entry{})
	s.index.Store(k, append(existing.([]Entry), e))
}

// Record appends a new measurement to the history and durable log.
func (s *Store) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return err
	}
	s.appendToIndex(e)
	return nil
}

// History returns every recorded measurement for (project, path,
// function), oldest first.
func (s *Store) History(project, path, function string) []Entry {
	v, ok := s.index.Load(key(project, path, function))
	if !ok {
		return nil
	}
	entries := v.([]Entry)
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Close flushes and closes the underlying log file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
