// Package coverage implements the coverage/impact component (C10):
// per-file test-coverage presence, a batched variant that amortizes
// test-file discovery across many files, and breaking-change impact
// analysis for a proposed refactor.
package coverage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/workerpool"
)

// testFileSet is the precomputed set of test-file paths and their
// contents under a project root, built once and reused across many
// has_tests lookups.
type testFileSet struct {
	root     string
	contents map[string]string // path -> file content
}

// buildTestFileSet walks root collecting every file matching lang's
// TestGlobs, reading its content for later substring/import checks.
func buildTestFileSet(root string, lang langs.Language) (*testFileSet, error) {
	globs := langs.TestGlobs(lang)
	set := &testFileSet{root: root, contents: make(map[string]string)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		matched := false
		for _, g := range globs {
			if ok, _ := doublestar.Match(g, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		set.contents[path] = string(data)
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.KindIO, "coverage.buildTestFileSet", err).WithPath(root)
	}
	return set, nil
}

// referencesFile reports whether any test file textually references
// file, either by its base name (import-style reference) or, for Go,
// by living alongside it with the _test.go suffix convention.
func (s *testFileSet) referencesFile(file string, lang langs.Language) bool {
	if suffix, ok := langs.SameDirTestSuffix(lang); ok {
		candidate := strings.TrimSuffix(file, filepath.Ext(file)) + suffix
		if _, ok := s.contents[candidate]; ok {
			return true
		}
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if base == "" {
		return false
	}
	for _, content := range s.contents {
		if strings.Contains(content, base) {
			return true
		}
	}
	return false
}

// HasTests reports whether file has any associated test coverage under
// root.
func HasTests(file string, lang langs.Language, root string) (bool, error) {
	set, err := buildTestFileSet(root, lang)
	if err != nil {
		return false, err
	}
	return set.referencesFile(file, lang), nil
}

// HasTestsBatch precomputes the test-file set once, then checks every
// file in files concurrently, bounded by a workerpool.Pool of the given
// width, materially faster than calling the scalar version per file.
func HasTestsBatch(ctx context.Context, files []string, lang langs.Language, root string, workers int) (map[string]bool, error) {
	set, err := buildTestFileSet(root, lang)
	if err != nil {
		return nil, err
	}

	pool := workerpool.New(workers)
	results, errs := workerpool.Map(ctx, pool, files, func(_ context.Context, file string) (bool, error) {
		return set.referencesFile(file, lang), nil
	})

	out := make(map[string]bool, len(files))
	for i, file := range files {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out[file] = results[i]
	}
	return out, nil
}
