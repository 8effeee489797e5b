package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/coverage"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/metrics"
	"github.com/astgrepmcp/astgrepmcp/internal/quality"
)

// CoverageParams is the coverage tool's input: batched has_tests plus
// an optional impact assessment for a proposed refactor.
type CoverageParams struct {
	Files    []string `json:"files"`
	Language string   `json:"language"`
	Root     string   `json:"root,omitempty"`

	// Impact, if FilesAffected > 0, additionally runs C10's breaking-
	// change risk assessment for a proposed refactor touching these files.
	Impact *coverage.ImpactInput `json:"impact,omitempty"`
}

// CoverageResult reports, per requested file, whether any test
// references it, plus an optional impact risk label.
type CoverageResult struct {
	HasTests map[string]bool        `json:"has_tests"`
	Risk     coverage.RiskLabel     `json:"risk,omitempty"`
}

// Coverage runs C10: batched has_tests over files, and (if an Impact
// input is given) the breaking-change risk assessment for a proposed
// refactor.
func Coverage(ctx context.Context, rt *Runtime, p CoverageParams) (CoverageResult, error) {
	lang := langs.Language(p.Language)
	hasTests, err := coverage.HasTestsBatch(ctx, p.Files, lang, p.Root, rt.Config.DefaultWorkers)
	if err != nil {
		return CoverageResult{}, err
	}
	result := CoverageResult{HasTests: hasTests}
	if p.Impact != nil {
		result.Risk = coverage.Assess(*p.Impact)
	}
	return result, nil
}

func coverageTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "coverage",
		Description: "Batched test-coverage lookup for a set of files, plus an optional breaking-change risk assessment for a proposed refactor.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"files":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"language": {Type: "string"},
				"root":     {Type: "string"},
				"impact": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"files_affected": {Type: "integer"},
						"is_public":      {Type: "boolean"},
						"caller_count":   {Type: "integer"},
						"cross_file":     {Type: "boolean"},
					},
				},
			},
			Required: []string{"files", "language"},
		},
		Handler: typed(Coverage),
	}
}

// QualityParams is the quality tool's input.
type QualityParams struct {
	Roots        []string `json:"roots"`
	Language     string   `json:"language"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
	MaxFileSize  int64    `json:"max_file_size,omitempty"`
}

// Quality runs C12's complexity measurement: per-function cyclomatic,
// cognitive, nesting, length, and parameter-count metrics. Each result
// is also appended to the durable metrics history, keyed by its file
// path and starting line (functions have no stable name in the
// construct data model, see internal/duplication.Construct), so
// metrics_history can later chart a function's measurements over time.
func Quality(ctx context.Context, rt *Runtime, p QualityParams) ([]quality.FunctionMetrics, error) {
	lang := langs.Language(p.Language)
	results, err := quality.Measure(ctx, rt.Exec, p.Roots, lang, quality.Options{
		ExcludeGlobs: p.ExcludeGlobs, MaxFileSize: p.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	project := ""
	if len(p.Roots) > 0 {
		project = p.Roots[0]
	}
	now := time.Now()
	for _, m := range results {
		_ = rt.Metrics.Record(metrics.Entry{
			Project:      project,
			Path:         m.Path,
			Function:     fmt.Sprintf("%s:%d", m.Path, m.Range.Start.Line),
			Cyclomatic:   m.Cyclomatic,
			Cognitive:    m.Cognitive,
			NestingDepth: m.NestingDepth,
			Lines:        m.Lines,
			ParamCount:   m.ParamCount,
			RecordedAt:   now,
		})
	}
	return results, nil
}

func qualityTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "quality",
		Description: "Measure per-function cyclomatic/cognitive complexity, nesting depth, length, and parameter count.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"roots":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"language":      {Type: "string"},
				"exclude_globs": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"max_file_size": {Type: "integer"},
			},
			Required: []string{"roots", "language"},
		},
		Handler: typed(Quality),
	}
}

// LintParams is the lint tool's input.
type LintParams struct {
	Roots        []string          `json:"roots"`
	Rules        []quality.LintRule `json:"rules,omitempty"`
	RulesYAML    string            `json:"rules_yaml,omitempty"`
	ExcludeGlobs []string          `json:"exclude_globs,omitempty"`
	MaxFileSize  int64             `json:"max_file_size,omitempty"`
}

// Lint evaluates data-driven structural lint rules across roots,
// supplied either as structured Rules or as a RulesYAML document.
func Lint(ctx context.Context, rt *Runtime, p LintParams) ([]quality.Finding, error) {
	rules := p.Rules
	if p.RulesYAML != "" {
		loaded, err := quality.LoadRules([]byte(p.RulesYAML))
		if err != nil {
			return nil, err
		}
		rules = append(rules, loaded...)
	}
	return quality.Lint(ctx, rt.Exec, p.Roots, rules, quality.LintOptions{
		ExcludeGlobs: p.ExcludeGlobs, MaxFileSize: p.MaxFileSize,
	})
}

func lintTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "lint",
		Description: "Evaluate data-driven structural lint rules (each an ad hoc pattern query) across source roots.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"roots":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"rules_yaml":    {Type: "string", Description: "YAML-encoded []LintRule document"},
				"exclude_globs": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"max_file_size": {Type: "integer"},
			},
			Required: []string{"roots"},
		},
		Handler: typed(Lint),
	}
}
