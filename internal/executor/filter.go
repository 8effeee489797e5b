package executor

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

// FilterOptions bounds a FilterPaths walk.
type FilterOptions struct {
	MaxFileSize   int64 // bytes; 0 means no cap
	ExcludeGlobs  []string
}

// FilterPaths enumerates source files under roots matching language's
// extension set, skipping files larger than MaxFileSize and any path
// matching one of ExcludeGlobs (doublestar patterns, matched against the
// path relative to the root it was found under). Used to prune the
// candidate file set before invoking the matcher, keeping argv small and
// avoiding wasted subprocess work on files that could never match.
func FilterPaths(roots []string, lang langs.Language, opts FilterOptions) ([]string, error) {
	exts := langs.Extensions(lang)
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	var out []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if !extSet[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)
			for _, pattern := range opts.ExcludeGlobs {
				if matched, _ := doublestar.Match(pattern, rel); matched {
					return nil
				}
			}

			if opts.MaxFileSize > 0 {
				info, infoErr := d.Info()
				if infoErr != nil {
					return infoErr
				}
				if info.Size() > opts.MaxFileSize {
					return nil
				}
			}

			out = append(out, path)
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New(errors.KindIO, "executor.FilterPaths", err).WithPath(root)
			}
			return nil, errors.New(errors.KindIO, "executor.FilterPaths", err).WithPath(root)
		}
	}
	return out, nil
}
