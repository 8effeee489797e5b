package protocol

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/coverage"
	"github.com/astgrepmcp/astgrepmcp/internal/duplication"
	"github.com/astgrepmcp/astgrepmcp/internal/duplication/apply"
	"github.com/astgrepmcp/astgrepmcp/internal/duplication/rank"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/quality"
)

// FindDuplicationParams is the find_duplication tool's input.
type FindDuplicationParams struct {
	Roots        []string `json:"roots"`
	Language     string   `json:"language"`
	Kind         string   `json:"kind,omitempty"` // "function" (default), "class", "method"
	MinLines     int      `json:"min_lines,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
	MaxFileSize  int64    `json:"max_file_size,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
}

// RankedGroup is one duplication group plus the ranking evidence and
// score the tool computed for it.
type RankedGroup struct {
	rank.Candidate
	Group duplication.Group `json:"group"`
}

func kindFrom(s string) duplication.Kind {
	switch s {
	case "class":
		return duplication.KindClass
	case "method":
		return duplication.KindMethod
	default:
		return duplication.KindFunction
	}
}

// FindDuplication runs C7 (detect) -> C8 (similarity, inside Detect) ->
// C9 (rank), enriching each group with C10-adjacent evidence (test
// coverage, average complexity) before scoring.
func FindDuplication(ctx context.Context, rt *Runtime, p FindDuplicationParams) ([]RankedGroup, error) {
	lang := langs.Language(p.Language)
	threshold := p.Threshold
	if threshold == 0 {
		threshold = duplication.DefaultThreshold
	}

	groups, err := duplication.Detect(ctx, rt.Exec, duplication.DetectOptions{
		Roots:        p.Roots,
		Language:     lang,
		Kind:         kindFrom(p.Kind),
		MinLines:     p.MinLines,
		ExcludeGlobs: p.ExcludeGlobs,
		MaxFileSize:  p.MaxFileSize,
		Threshold:    threshold,
	})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	metrics, err := quality.Measure(ctx, rt.Exec, p.Roots, lang, quality.Options{
		ExcludeGlobs: p.ExcludeGlobs, MaxFileSize: p.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	cyclomaticByStart := make(map[string]int, len(metrics))
	for _, m := range metrics {
		cyclomaticByStart[fmt.Sprintf("%s:%d", m.Path, m.Range.Start.Line)] = m.Cyclomatic
	}

	distinctFiles := make(map[string]bool)
	for _, g := range groups {
		for _, m := range g.Members {
			distinctFiles[m.Path] = true
		}
	}
	files := make([]string, 0, len(distinctFiles))
	for f := range distinctFiles {
		files = append(files, f)
	}
	hasTests := make(map[string]bool, len(files))
	for _, root := range p.Roots {
		found, err := coverage.HasTestsBatch(ctx, files, lang, root, rt.Config.DefaultWorkers)
		if err != nil {
			return nil, err
		}
		for f, ok := range found {
			if ok {
				hasTests[f] = true
			}
		}
	}

	candidates := make([]rank.Candidate, len(groups))
	for i, g := range groups {
		fileSet := make(map[string]bool)
		totalLines := 0
		totalCyclomatic := 0
		groupHasTests := true
		for _, m := range g.Members {
			fileSet[m.Path] = true
			totalLines += m.Lines()
			if c, ok := cyclomaticByStart[fmt.Sprintf("%s:%d", m.Path, m.Range.Start.Line)]; ok {
				totalCyclomatic += c
			} else {
				totalCyclomatic++ // base path, unmeasured member
			}
			if !hasTests[m.Path] {
				groupHasTests = false
			}
		}
		candidates[i] = rank.Candidate{
			GroupID:       fmt.Sprintf("g%d", i),
			MemberCount:   len(g.Members),
			AvgBodyLines:  totalLines / len(g.Members),
			AvgCyclomatic: float64(totalCyclomatic) / float64(len(g.Members)),
			FilesAffected: len(fileSet),
			HasTests:      groupHasTests,
			CallSiteCount: len(g.Members), // each duplicate instance becomes a call site once extracted
		}
	}

	ranked := rank.Rank(candidates, rank.DefaultWeights, p.MaxResults)
	byID := make(map[string]duplication.Group, len(groups))
	for i, g := range groups {
		byID[fmt.Sprintf("g%d", i)] = g
	}
	out := make([]RankedGroup, len(ranked))
	for i, c := range ranked {
		out[i] = RankedGroup{Candidate: c, Group: byID[c.GroupID]}
	}
	return out, nil
}

func findDuplicationTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "find_duplication",
		Description: "Detect structurally similar functions/classes/methods, group them, and rank groups by extraction payoff.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"roots":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"language":      {Type: "string"},
				"kind":          {Type: "string", Description: "function (default), class, or method"},
				"min_lines":     {Type: "integer"},
				"threshold":     {Type: "number", Description: "minimum pairwise similarity, default 0.6"},
				"exclude_globs": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"max_file_size": {Type: "integer"},
				"max_results":   {Type: "integer"},
			},
			Required: []string{"roots", "language"},
		},
		Handler: typed(FindDuplication),
	}
}

// DedupApplyParams is the dedup_apply tool's input.
type DedupApplyParams struct {
	Candidates     []apply.Candidate `json:"candidates"`
	AllOrNothing   bool               `json:"all_or_nothing,omitempty"`
	ValidateSyntax bool               `json:"validate_syntax,omitempty"`
}

// DedupApply runs C11: validate each proposed deduplication candidate
// independently, resolve conflicts in input order, and commit the
// surviving candidates as a single atomic plan.
func DedupApply(ctx context.Context, rt *Runtime, p DedupApplyParams) (apply.Result, error) {
	mode := apply.PartialSuccess
	if p.AllOrNothing {
		mode = apply.AllOrNothing
	}
	return apply.Apply(ctx, rt.Engine, rt.Locker, p.Candidates, apply.Options{
		Mode: mode, ValidateSyntax: p.ValidateSyntax,
	})
}

func dedupApplyTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "dedup_apply",
		Description: "Apply a set of proposed deduplication candidates (each a call-site rewrite plus optional shared helper) with independent validation and conflict detection.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"candidates":      {Type: "array", Description: "proposed deduplication candidates, as produced by a prior find_duplication call and an extraction strategy"},
				"all_or_nothing":  {Type: "boolean", Description: "abort every candidate if any fails validation, instead of applying the rest"},
				"validate_syntax": {Type: "boolean"},
			},
			Required: []string{"candidates"},
		},
		Handler: typed(DedupApply),
	}
}
