package protocol

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

// RewriteParams is the rewrite tool's input: a pattern search plus a
// replacement template referencing the pattern's metavariables.
type RewriteParams struct {
	Pattern        string   `json:"pattern"`
	Rewrite        string   `json:"rewrite"`
	Language       string   `json:"language"`
	Roots          []string `json:"roots"`
	DryRun         bool     `json:"dry_run,omitempty"`
	ValidateSyntax bool     `json:"validate_syntax,omitempty"`
}

// RewriteResult is the rewrite tool's output.
type RewriteResult struct {
	Diffs    []rewrite.FileDiff `json:"diffs"`
	Applied  []string           `json:"applied_paths,omitempty"`
	BackupID string             `json:"backup_id,omitempty"`
}

// Rewrite composes C4 over C1: a pattern search produces matches,
// each match's metavariable bindings are substituted into the rewrite
// template, and the resulting plan is previewed (always) and, unless
// DryRun, applied through the engine.
func Rewrite(ctx context.Context, rt *Runtime, p RewriteParams) (RewriteResult, error) {
	lang := langs.Language(p.Language)
	paths, err := executor.FilterPaths(p.Roots, lang, executor.FilterOptions{})
	if err != nil {
		return RewriteResult{}, err
	}

	args := append([]string{"--pattern", p.Pattern, "--lang", string(lang)}, paths...)
	matches, err := rt.Exec.RunMatches(ctx, args)
	if err != nil {
		return RewriteResult{}, err
	}

	plan, err := buildRewritePlan(matches, p.Rewrite, lang)
	if err != nil {
		return RewriteResult{}, err
	}

	diffs, err := rt.Engine.Preview(plan)
	if err != nil {
		return RewriteResult{}, err
	}
	if p.DryRun {
		return RewriteResult{Diffs: diffs}, nil
	}

	res, err := rt.Engine.Apply(plan, rewrite.ApplyOptions{MakeBackup: true, ValidateSyntax: p.ValidateSyntax})
	if err != nil {
		return RewriteResult{}, err
	}
	return RewriteResult{Diffs: diffs, Applied: res.AppliedPaths, BackupID: res.BackupID}, nil
}

// metaVarRe matches both the multi-node ($$$NAME) and single-node
// ($NAME) metavariable forms; ordered so the three-dollar form is
// tried first (Go regexp alternation takes the first matching branch,
// so $$$NAME would otherwise be seen as $ + $NAME).
var metaVarRe = regexp.MustCompile(`\$\$\$([A-Za-z_][A-Za-z0-9_]*)|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteTemplate replaces every metavariable reference in template
// with its bound text from a match's MetaVars. Rewrite templates share
// the pattern language's metavariable syntax.
func substituteTemplate(template string, vars map[string]matcher.Binding) string {
	return metaVarRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := strings.TrimLeft(tok, "$")
		if b, ok := vars[name]; ok {
			return b.Text
		}
		return tok
	})
}

// buildRewritePlan groups matches by file and splices each match's
// substituted replacement into that file's current content in place of
// the match's own span (text before and after it on its first and last
// lines is kept), processing matches within a file bottom-to-top (by
// line, then column) so earlier splices never invalidate later matches'
// positions, the same ordering
// internal/duplication/apply.go uses for its own multi-edit merge.
func buildRewritePlan(matches []matcher.MatchRecord, template string, lang langs.Language) (rewrite.Plan, error) {
	byFile := make(map[string][]matcher.MatchRecord)
	for _, m := range matches {
		byFile[m.File] = append(byFile[m.File], m)
	}

	var plan rewrite.Plan
	for path, fileMatches := range byFile {
		original, err := os.ReadFile(path)
		if err != nil {
			return rewrite.Plan{}, errors.New(errors.KindIO, "protocol.buildRewritePlan", err).WithPath(path)
		}
		sort.Slice(fileMatches, func(i, j int) bool {
			a, b := fileMatches[i].Range.Start, fileMatches[j].Range.Start
			if a.Line != b.Line {
				return a.Line > b.Line
			}
			return a.Column > b.Column
		})

		lines := strings.Split(strings.TrimSuffix(string(original), "\n"), "\n")
		for _, m := range fileMatches {
			start, end := m.Range.Start.Line-1, m.Range.End.Line-1
			if start < 0 || end >= len(lines) || start > end {
				continue
			}
			replacement := substituteTemplate(template, m.MetaVars)
			prefix := lines[start][:min(max(m.Range.Start.Column-1, 0), len(lines[start]))]
			suffix := lines[end][min(max(m.Range.End.Column-1, 0), len(lines[end])):]
			newLines := make([]string, 0, len(lines)-(end-start+1)+1)
			newLines = append(newLines, lines[:start]...)
			newLines = append(newLines, prefix+replacement+suffix)
			newLines = append(newLines, lines[end+1:]...)
			lines = newLines
		}

		plan.Edits = append(plan.Edits, rewrite.Edit{
			Path:     path,
			NewBytes: []byte(strings.Join(lines, "\n") + "\n"),
			Language: lang,
			Cause:    "pattern:" + template,
		})
	}
	return plan, nil
}

func rewriteTool() ToolDescriptor {
	return ToolDescriptor{
		Name:        "rewrite",
		Description: "Search for a structural pattern and replace each match with a metavariable-substituted template.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pattern":         {Type: "string", Description: "ast-grep structural pattern"},
				"rewrite":         {Type: "string", Description: "replacement template referencing the pattern's metavariables"},
				"language":        {Type: "string"},
				"roots":           {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"dry_run":         {Type: "boolean", Description: "preview only, never write"},
				"validate_syntax": {Type: "boolean", Description: "run a per-language structural validator before committing"},
			},
			Required: []string{"pattern", "rewrite", "language", "roots"},
		},
		Handler: typed(Rewrite),
	}
}
