package quality

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// Severity classifies a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// LintRule is a structural pattern evaluated as an ad hoc C1 query,
// loaded as data rather than compiled in.
type LintRule struct {
	ID       string         `yaml:"id"`
	Language langs.Language `yaml:"language"`
	Pattern  string         `yaml:"pattern"`
	Message  string         `yaml:"message"`
	Severity Severity       `yaml:"severity"`
}

// LoadRules parses a YAML document into a []LintRule.
func LoadRules(data []byte) ([]LintRule, error) {
	var rules []LintRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, errors.New(errors.KindRuleInvalid, "quality.LoadRules", err)
	}
	return rules, nil
}

// Finding is one lint rule match.
type Finding struct {
	RuleID   string
	Path     string
	Range    matcher.Range
	Message  string
	Severity Severity
}

// LintOptions bounds a Lint run.
type LintOptions struct {
	ExcludeGlobs []string
	MaxFileSize  int64
}

// Lint evaluates every rule against roots via one C1 query per rule.
// A rule whose language the matcher build doesn't support is skipped
// rather than failing the whole run, mirroring Measure's tolerance of
// unsupported decision patterns.
func Lint(ctx context.Context, exec *executor.Executor, roots []string, rules []LintRule, opts LintOptions) ([]Finding, error) {
	var findings []Finding
	for _, rule := range rules {
		paths, err := executor.FilterPaths(roots, rule.Language, executor.FilterOptions{
			MaxFileSize:  opts.MaxFileSize,
			ExcludeGlobs: opts.ExcludeGlobs,
		})
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			continue
		}

		args := append([]string{"--pattern", rule.Pattern, "--lang", string(rule.Language)}, paths...)
		matches, err := exec.RunMatches(ctx, args)
		if err != nil {
			continue
		}
		for _, m := range matches {
			findings = append(findings, Finding{
				RuleID:   rule.ID,
				Path:     m.File,
				Range:    m.Range,
				Message:  rule.Message,
				Severity: rule.Severity,
			})
		}
	}
	return findings, nil
}
