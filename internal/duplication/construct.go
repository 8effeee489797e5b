// Package duplication implements the duplication detector (C7):
// construct enumeration via the executor, structural-hash bucketing,
// pairwise similarity within buckets, and transitive-closure group
// building with a merge guard.
package duplication

import (
	"context"
	"strings"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// Kind is the construct shape to enumerate.
type Kind int

const (
	KindFunction Kind = iota
	KindClass
	KindMethod
)

// Construct is one enumerated candidate for duplication comparison.
type Construct struct {
	Path     string
	Range    matcher.Range
	Language langs.Language
	Kind     Kind
	Body     string
}

// Lines reports the construct's source line span.
func (c Construct) Lines() int {
	return c.Range.End.Line - c.Range.Start.Line + 1
}

// constructPatterns are ast-grep structural patterns per (kind, language),
// using $NAME for a single captured node and $$$ for a zero-or-more node
// list, per ast-grep's own pattern metavariable syntax.
var constructPatterns = map[Kind]map[langs.Language]string{
	KindFunction: {
		langs.Go:         "func $NAME($$$PARAMS) $$$RET { $$$BODY }",
		langs.Python:     "def $NAME($$$PARAMS): $$$BODY",
		langs.JavaScript: "function $NAME($$$PARAMS) { $$$BODY }",
		langs.TypeScript: "function $NAME($$$PARAMS) { $$$BODY }",
		langs.Java:       "$RET $NAME($$$PARAMS) { $$$BODY }",
		langs.CSharp:     "$RET $NAME($$$PARAMS) { $$$BODY }",
		langs.Rust:       "fn $NAME($$$PARAMS) $$$RET { $$$BODY }",
	},
	KindMethod: {
		langs.Go:         "func ($RECV) $NAME($$$PARAMS) $$$RET { $$$BODY }",
		langs.Python:     "def $NAME(self, $$$PARAMS): $$$BODY",
		langs.JavaScript: "$NAME($$$PARAMS) { $$$BODY }",
		langs.TypeScript: "$NAME($$$PARAMS) { $$$BODY }",
		langs.Java:       "$RET $NAME($$$PARAMS) { $$$BODY }",
		langs.CSharp:     "$RET $NAME($$$PARAMS) { $$$BODY }",
		langs.Rust:       "fn $NAME($$$PARAMS) $$$RET { $$$BODY }",
	},
	KindClass: {
		langs.Python:     "class $NAME: $$$BODY",
		langs.JavaScript: "class $NAME { $$$BODY }",
		langs.TypeScript: "class $NAME { $$$BODY }",
		langs.Java:       "class $NAME { $$$BODY }",
		langs.CSharp:     "class $NAME { $$$BODY }",
		langs.Rust:       "struct $NAME { $$$BODY }",
	},
}

// EnumerateOptions bounds a construct enumeration.
type EnumerateOptions struct {
	Roots        []string
	Language     langs.Language
	Kind         Kind
	MinLines     int
	ExcludeGlobs []string
	MaxFileSize  int64
}

// Enumerate streams every construct of the requested kind under roots
// using C1, filtering out results shorter than MinLines.
func Enumerate(ctx context.Context, exec *executor.Executor, opts EnumerateOptions) ([]Construct, error) {
	pattern, ok := constructPatterns[opts.Kind][opts.Language]
	if !ok {
		return nil, errors.New(errors.KindRuleInvalid, "duplication.Enumerate", nil).
			WithDetail("language", string(opts.Language)).WithDetail("kind", kindName(opts.Kind))
	}

	paths, err := executor.FilterPaths(opts.Roots, opts.Language, executor.FilterOptions{
		MaxFileSize:  opts.MaxFileSize,
		ExcludeGlobs: opts.ExcludeGlobs,
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	args := append([]string{"--pattern", pattern, "--lang", string(opts.Language)}, paths...)

	var constructs []Construct
	_, err = exec.Stream(ctx, "scan", args, executor.StreamOptions{
		OnMatch: func(m matcher.MatchRecord) bool {
			c := Construct{
				Path:     m.File,
				Range:    m.Range,
				Language: opts.Language,
				Kind:     opts.Kind,
				Body:     trimBody(m.Text),
			}
			if c.Lines() >= opts.MinLines {
				constructs = append(constructs, c)
			}
			return true
		},
	})
	if err != nil {
		return nil, err
	}
	return constructs, nil
}

func kindName(k Kind) string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

func trimBody(body string) string {
	return strings.TrimSpace(body)
}
