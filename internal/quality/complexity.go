// Package quality implements the complexity/quality component (C12):
// per-function cyclomatic, cognitive, nesting, length, and
// parameter-count metrics, plus data-driven structural lint rules.
// Rule execution reuses C1: neither measurement parses source
// locally, every decision point and every lint finding comes from an
// ast-grep pattern match, scoped to a function's range by line-number
// containment.
package quality

import (
	"context"
	"strings"

	"github.com/astgrepmcp/astgrepmcp/internal/duplication"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// decisionPoint is one pattern whose matches count toward cyclomatic
// complexity. Nests distinguishes control-flow patterns (which
// increase nesting for any decision point inside them) from flat
// boolean-operator patterns (which add a decision point but don't
// themselves nest anything).
type decisionPoint struct {
	Pattern string
	Nests   bool
}

var decisionPatterns = map[langs.Language][]decisionPoint{
	langs.Go: {
		{Pattern: "if $COND { $$$BODY }", Nests: true},
		{Pattern: "for $$$INIT { $$$BODY }", Nests: true},
		{Pattern: "case $$$VALS: $$$BODY", Nests: false},
		{Pattern: "$A && $B", Nests: false},
		{Pattern: "$A || $B", Nests: false},
	},
	langs.Python: {
		{Pattern: "if $COND: $$$BODY", Nests: true},
		{Pattern: "elif $COND: $$$BODY", Nests: true},
		{Pattern: "for $VAR in $ITER: $$$BODY", Nests: true},
		{Pattern: "while $COND: $$$BODY", Nests: true},
		{Pattern: "except $$$EXC: $$$BODY", Nests: true},
		{Pattern: "$A and $B", Nests: false},
		{Pattern: "$A or $B", Nests: false},
	},
	langs.JavaScript: {
		{Pattern: "if ($COND) { $$$BODY }", Nests: true},
		{Pattern: "for ($$$INIT) { $$$BODY }", Nests: true},
		{Pattern: "while ($COND) { $$$BODY }", Nests: true},
		{Pattern: "case $VAL: $$$BODY", Nests: false},
		{Pattern: "catch ($ERR) { $$$BODY }", Nests: true},
		{Pattern: "$A && $B", Nests: false},
		{Pattern: "$A || $B", Nests: false},
	},
	langs.Java: {
		{Pattern: "if ($COND) { $$$BODY }", Nests: true},
		{Pattern: "for ($$$INIT) { $$$BODY }", Nests: true},
		{Pattern: "while ($COND) { $$$BODY }", Nests: true},
		{Pattern: "catch ($$$EXC) { $$$BODY }", Nests: true},
		{Pattern: "$A && $B", Nests: false},
		{Pattern: "$A || $B", Nests: false},
	},
}

func init() {
	decisionPatterns[langs.TypeScript] = decisionPatterns[langs.JavaScript]
	decisionPatterns[langs.CSharp] = decisionPatterns[langs.Java]
}

// FunctionMetrics is one function's complexity and size measurement.
type FunctionMetrics struct {
	Path         string
	Range        matcher.Range
	Cyclomatic   int
	Cognitive    int
	NestingDepth int
	Lines        int
	ParamCount   int
}

// Options bounds a Measure run over a project.
type Options struct {
	ExcludeGlobs []string
	MaxFileSize  int64
}

// Measure computes FunctionMetrics for every function and method under
// roots in the given language. Functions are enumerated once via C7's
// construct enumeration (itself a single C1 stream); decision points
// are enumerated once per pattern across every file, then assigned to
// the enclosing function by line-range containment, so a project with
// N functions costs len(decisionPatterns[lang])+2 subprocess invocations, not
// N of them.
func Measure(ctx context.Context, exec *executor.Executor, roots []string, lang langs.Language, opts Options) ([]FunctionMetrics, error) {
	functions, err := duplication.Enumerate(ctx, exec, duplication.EnumerateOptions{
		Roots: roots, Language: lang, Kind: duplication.KindFunction,
		ExcludeGlobs: opts.ExcludeGlobs, MaxFileSize: opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	methods, err := duplication.Enumerate(ctx, exec, duplication.EnumerateOptions{
		Roots: roots, Language: lang, Kind: duplication.KindMethod,
		ExcludeGlobs: opts.ExcludeGlobs, MaxFileSize: opts.MaxFileSize,
	})
	if err == nil {
		functions = append(functions, methods...)
	}

	decisions, err := collectDecisions(ctx, exec, roots, lang, opts)
	if err != nil {
		return nil, err
	}

	metrics := make([]FunctionMetrics, 0, len(functions))
	for _, fn := range functions {
		metrics = append(metrics, measureOne(fn, decisions[fn.Path]))
	}
	return metrics, nil
}

type decisionHit struct {
	Range matcher.Range
	Nests bool
}

func collectDecisions(ctx context.Context, exec *executor.Executor, roots []string, lang langs.Language, opts Options) (map[string][]decisionHit, error) {
	points := decisionPatterns[lang]
	if len(points) == 0 {
		return nil, nil
	}

	paths, err := executor.FilterPaths(roots, lang, executor.FilterOptions{
		MaxFileSize:  opts.MaxFileSize,
		ExcludeGlobs: opts.ExcludeGlobs,
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	out := make(map[string][]decisionHit)
	for _, dp := range points {
		args := append([]string{"--pattern", dp.Pattern, "--lang", string(lang)}, paths...)
		matches, err := exec.RunMatches(ctx, args)
		if err != nil {
			continue // a decision pattern unsupported by this language build; skip rather than fail the whole measurement
		}
		for _, m := range matches {
			out[m.File] = append(out[m.File], decisionHit{Range: m.Range, Nests: dp.Nests})
		}
	}
	return out, nil
}

func measureOne(fn duplication.Construct, hits []decisionHit) FunctionMetrics {
	m := FunctionMetrics{
		Path:       fn.Path,
		Range:      fn.Range,
		Lines:      fn.Lines(),
		ParamCount: countParams(fn.Body, fn.Language),
		Cyclomatic: 1, // base path, per "decision-point count + 1"
	}

	var inside []decisionHit
	for _, h := range hits {
		if h.Range.Start.Line >= fn.Range.Start.Line && h.Range.End.Line <= fn.Range.End.Line {
			inside = append(inside, h)
		}
	}

	baseIndent := leadingIndent(firstLine(fn.Body))
	maxNesting := 0
	for _, h := range inside {
		m.Cyclomatic++
		nesting := nestingLevel(fn.Body, fn.Range.Start.Line, h.Range.Start.Line, baseIndent)
		if h.Nests && nesting > maxNesting {
			maxNesting = nesting
		}
		// Cognitive complexity: each decision point costs 1 plus its
		// nesting depth, the standard nesting-penalty shape, approximated
		// via indentation since the core does not parse source locally.
		m.Cognitive += 1 + nesting
	}
	m.NestingDepth = maxNesting
	return m
}

func firstLine(body string) string {
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		return body[:i]
	}
	return body
}

func leadingIndent(line string) int {
	n := 0
	for _, c := range line {
		if c == ' ' {
			n++
		} else if c == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

// nestingLevel approximates how many control-flow levels deep matchLine
// sits within fn's body, by comparing its leading indentation against
// the function's own baseline, in four-column units.
func nestingLevel(body string, fnStartLine, matchLine, baseIndent int) int {
	lines := strings.Split(body, "\n")
	idx := matchLine - fnStartLine
	if idx < 0 || idx >= len(lines) {
		return 0
	}
	indent := leadingIndent(lines[idx])
	level := (indent - baseIndent) / 4
	if level < 0 {
		return 0
	}
	return level
}

// countParams heuristically counts a function's declared parameters by
// locating the first balanced parenthesis group in its signature line
// and splitting on top-level commas, the same signature-scanning
// heuristic internal/refactor/extract.go uses to infer call parameters,
// since the core does not parse source languages itself.
func countParams(body string, lang langs.Language) int {
	sig := firstLine(body)
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return 0
	}
	depth := 0
	end := -1
	for i := open; i < len(sig); i++ {
		switch sig[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return 0
	}
	params := strings.TrimSpace(sig[open+1 : end])
	if params == "" {
		return 0
	}

	count := 1
	depth = 0
	for _, c := range params {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}
