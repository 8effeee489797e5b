package duplication

import (
	"context"

	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

// DetectOptions configures a full duplication-detection run.
type DetectOptions struct {
	Roots        []string
	Language     langs.Language
	Kind         Kind
	MinLines     int
	ExcludeGlobs []string
	MaxFileSize  int64
	Threshold    float64
}

// Detect runs the full C7 pipeline: enumerate constructs via the
// executor, bucket them structurally, and build duplication groups
// within each bucket.
func Detect(ctx context.Context, exec *executor.Executor, opts DetectOptions) ([]Group, error) {
	constructs, err := Enumerate(ctx, exec, EnumerateOptions{
		Roots:        opts.Roots,
		Language:     opts.Language,
		Kind:         opts.Kind,
		MinLines:     opts.MinLines,
		ExcludeGlobs: opts.ExcludeGlobs,
		MaxFileSize:  opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	return BuildGroups(constructs, opts.Threshold), nil
}
