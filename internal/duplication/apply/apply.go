// Package apply implements the deduplication applicator (C11): given a
// ranked set of duplication candidates, it orders their edits, snapshots
// every affected file once, validates each candidate's generated
// replacement independently, and commits everything that survives
// validation through the rewrite engine (C4).
package apply

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

// Strategy names the refactoring used to eliminate a duplication group.
type Strategy string

const (
	StrategyExtractFunction Strategy = "extract_function"
	StrategyExtractClass    Strategy = "extract_class"
	StrategyInline          Strategy = "inline"
)

// Replacement is one member's body replaced by call-site code, within a
// single file. Splicing works on whole lines: Range.Start.Line is the
// first line replaced and Range.End.Line the first line kept (see
// spliceLines); columns are not consulted.
type Replacement struct {
	Path     string
	Range    matcher.Range
	Language langs.Language
	NewText  string
}

// Helper is the canonical declaration a candidate introduces once (the
// extracted function or class), plus the import its call sites require.
type Helper struct {
	Path       string // file the declaration is appended to
	Text       string // rendered declaration
	ImportPath string // empty if call sites need no new import
}

// Candidate is one deduplication opportunity queued for application:
// the duplication group it resolves, the strategy chosen for it, every
// call-site replacement the template generated, and the canonical
// helper those call sites delegate to (nil for pure inlining).
type Candidate struct {
	GroupID      string
	Strategy     Strategy
	Replacements []Replacement
	Helper       *Helper
}

// Files returns every path this candidate would modify, in the order
// they first appear.
func (c Candidate) Files() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, r := range c.Replacements {
		add(r.Path)
	}
	if c.Helper != nil {
		add(c.Helper.Path)
	}
	return out
}

// Status is a candidate's final disposition.
type Status string

const (
	StatusApplied           Status = "applied"
	StatusSkippedValidation Status = "skipped-validation"
	StatusSkippedConflict   Status = "skipped-conflict"
)

// CandidateReport is one line of the per-candidate report.
type CandidateReport struct {
	GroupID string
	Status  Status
	Reason  string
}

// Mode chooses between committing only what validated (PartialSuccess,
// the default) and refusing to commit anything if any candidate failed
// validation (AllOrNothing).
type Mode int

const (
	PartialSuccess Mode = iota
	AllOrNothing
)

// Options controls one Apply run.
type Options struct {
	Mode           Mode
	ValidateSyntax bool
}

// Result reports what Apply actually did.
type Result struct {
	BackupID string
	Reports  []CandidateReport
	Applied  rewrite.ApplyResult
}

// overlaps reports whether two 1-indexed, end-exclusive line ranges
// intersect (splicing operates at line granularity, per spliceLines).
func overlaps(a, b matcher.Range) bool {
	return a.Start.Line < b.End.Line && b.Start.Line < a.End.Line
}

// Apply carries out the deduplication procedure. Candidates are processed
// in the order given (the caller is expected to pass them pre-ranked by
// internal/duplication/rank): earlier candidates win any range
// conflict, candidates are validated independently against each
// touched file's original content, and, barring an AllOrNothing abort,
// every validated, non-conflicting candidate's edits are merged
// per-file (bottom-to-top by start line, to keep earlier splices from
// invalidating later line ranges) and committed as one rewrite.Plan.
func Apply(ctx context.Context, engine *rewrite.Engine, locker *Locker, candidates []Candidate, opts Options) (Result, error) {
	if locker == nil {
		locker = NewLocker()
	}

	files := distinctFiles(candidates)
	unlock := locker.Lock(files)
	defer unlock()

	original, err := readAll(files)
	if err != nil {
		return Result{}, err
	}

	reports := make([]CandidateReport, len(candidates))
	accepted := make([]bool, len(candidates))
	claimed := make(map[string][]matcher.Range)

	// Step 1 is implicit: candidates already name every file they touch
	// (Files()); conflicting ranges are resolved here in input order.
	for i, c := range candidates {
		reports[i] = CandidateReport{GroupID: c.GroupID}
		if conflicted(c, claimed) {
			reports[i].Status = StatusSkippedConflict
			reports[i].Reason = "overlaps a range claimed by an earlier candidate"
			continue
		}
		for _, r := range c.Replacements {
			claimed[r.Path] = append(claimed[r.Path], r.Range)
		}
		accepted[i] = true
	}

	// Step 2: a single backup covering every file that exists on disk.
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	var backupID string
	if len(existing) > 0 {
		backupID, err = engine.Backups.Create(existing)
		if err != nil {
			return Result{}, err
		}
	}

	// Step 3: validate each non-conflicting candidate against its own
	// files' original content, independent of every other candidate.
	anyFailed := false
	for i, c := range candidates {
		if !accepted[i] {
			continue
		}
		select {
		case <-ctx.Done():
			reports[i].Status = StatusSkippedValidation
			reports[i].Reason = ctx.Err().Error()
			accepted[i] = false
			anyFailed = true
			continue
		default:
		}

		content, buildErr := spliceCandidate(c, original)
		if buildErr != nil {
			reports[i].Status = StatusSkippedValidation
			reports[i].Reason = buildErr.Error()
			accepted[i] = false
			anyFailed = true
			continue
		}

		if opts.ValidateSyntax {
			if failReason, ok := validateContent(content, candidateLanguages(c)); !ok {
				reports[i].Status = StatusSkippedValidation
				reports[i].Reason = failReason
				accepted[i] = false
				anyFailed = true
				continue
			}
		}
	}

	// Step 4: all-or-nothing abort.
	if anyFailed && opts.Mode == AllOrNothing {
		if backupID != "" {
			if _, err := engine.Rollback(backupID); err != nil {
				return Result{Reports: reports}, errors.New(errors.KindRollbackFailed, "apply.Apply", err)
			}
		}
		for i := range reports {
			if accepted[i] {
				reports[i].Status = StatusSkippedValidation
				reports[i].Reason = "withheld: another candidate in this run failed validation under all-or-nothing mode"
			}
		}
		return Result{BackupID: backupID, Reports: reports}, nil
	}

	// Step 5: merge every accepted candidate's edits per file and apply.
	plan, err := buildPlan(candidates, accepted, original, files)
	if err != nil {
		return Result{Reports: reports}, err
	}

	if len(plan.Edits) == 0 {
		return Result{BackupID: backupID, Reports: reports}, nil
	}

	applyResult, err := engine.Apply(plan, rewrite.ApplyOptions{MakeBackup: false, ValidateSyntax: opts.ValidateSyntax})
	if err != nil {
		if backupID != "" {
			if _, rbErr := engine.Rollback(backupID); rbErr != nil {
				return Result{Reports: reports}, errors.New(errors.KindRollbackFailed, "apply.Apply", rbErr).WithDetail("apply_error", err.Error())
			}
		}
		for i := range candidates {
			if accepted[i] {
				reports[i].Status = StatusSkippedValidation
				reports[i].Reason = "merged-plan validation failed: " + err.Error()
			}
		}
		return Result{BackupID: backupID, Reports: reports}, nil
	}

	for i := range candidates {
		if accepted[i] {
			reports[i].Status = StatusApplied
		}
	}
	return Result{BackupID: backupID, Reports: reports, Applied: applyResult}, nil
}

func distinctFiles(candidates []Candidate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		for _, f := range c.Files() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

func readAll(files []string) (map[string][]byte, error) {
	content := make(map[string][]byte, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			if os.IsNotExist(err) {
				content[f] = nil
				continue
			}
			return nil, errors.New(errors.KindIO, "apply.readAll", err).WithPath(f)
		}
		content[f] = data
	}
	return content, nil
}

func conflicted(c Candidate, claimed map[string][]matcher.Range) bool {
	for _, r := range c.Replacements {
		for _, existing := range claimed[r.Path] {
			if overlaps(r.Range, existing) {
				return true
			}
		}
	}
	return false
}

// spliceCandidate applies c's own replacements (and helper) against the
// files it touches, starting from each file's original content, bottom
// to top so earlier splices don't shift later ranges' line numbers.
func spliceCandidate(c Candidate, original map[string][]byte) (map[string][]byte, error) {
	perFile := make(map[string][]Replacement)
	for _, r := range c.Replacements {
		perFile[r.Path] = append(perFile[r.Path], r)
	}

	out := make(map[string][]byte, len(perFile)+1)
	for path, reps := range perFile {
		base, ok := original[path]
		if !ok {
			return nil, fmt.Errorf("candidate %s: no content read for %s", c.GroupID, path)
		}
		sort.Slice(reps, func(i, j int) bool { return reps[i].Range.Start.Line > reps[j].Range.Start.Line })
		lines := splitLines(base)
		for _, r := range reps {
			var err error
			lines, err = spliceLines(lines, r.Range, r.NewText)
			if err != nil {
				return nil, fmt.Errorf("candidate %s: %w", c.GroupID, err)
			}
		}
		out[path] = []byte(strings.Join(lines, "\n"))
	}

	if c.Helper != nil {
		base := out[c.Helper.Path]
		if base == nil {
			base = original[c.Helper.Path]
		}
		content := string(base)
		if c.Helper.ImportPath != "" {
			content = insertImport(content, c.Helper.ImportPath)
		}
		content = strings.TrimRight(content, "\n") + "\n\n" + strings.TrimSpace(c.Helper.Text) + "\n"
		out[c.Helper.Path] = []byte(content)
	}
	return out, nil
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
}

// spliceLines replaces the 1-indexed, end-exclusive line range r within
// lines with newText, returning the resulting line slice.
func spliceLines(lines []string, r matcher.Range, newText string) ([]string, error) {
	start, end := r.Start.Line-1, r.End.Line-1
	if start < 0 || end > len(lines) || start > end {
		return nil, fmt.Errorf("replacement range %d-%d out of bounds for %d lines", r.Start.Line, r.End.Line, len(lines))
	}
	replacement := strings.Split(strings.TrimSuffix(newText, "\n"), "\n")
	out := make([]string, 0, len(lines)-(end-start)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)
	return out, nil
}

func candidateLanguages(c Candidate) map[string]langs.Language {
	out := make(map[string]langs.Language, len(c.Replacements))
	for _, r := range c.Replacements {
		out[r.Path] = r.Language
	}
	return out
}

func validateContent(content map[string][]byte, langByPath map[string]langs.Language) (reason string, ok bool) {
	for path, data := range content {
		lang := langByPath[path]
		if lang == "" {
			lang = langs.Go
		}
		result := rewrite.DefaultValidator(lang, data)
		if !result.OK {
			return fmt.Sprintf("%s: %v", path, result.Errors), false
		}
	}
	return "", true
}

// buildPlan merges every accepted candidate's replacements per file,
// processing files bottom-to-top within each file so earlier splices
// never invalidate a later range's line numbers, then produces one
// rewrite.Edit per touched file.
func buildPlan(candidates []Candidate, accepted []bool, original map[string][]byte, files []string) (rewrite.Plan, error) {
	perFile := make(map[string][]Replacement)
	helpersPerFile := make(map[string][]Helper)
	causesPerFile := make(map[string][]string)
	langPerFile := make(map[string]langs.Language)

	for i, c := range candidates {
		if !accepted[i] {
			continue
		}
		for _, r := range c.Replacements {
			perFile[r.Path] = append(perFile[r.Path], r)
			langPerFile[r.Path] = r.Language
			causesPerFile[r.Path] = append(causesPerFile[r.Path], c.GroupID)
		}
		if c.Helper != nil {
			helpersPerFile[c.Helper.Path] = append(helpersPerFile[c.Helper.Path], *c.Helper)
			causesPerFile[c.Helper.Path] = append(causesPerFile[c.Helper.Path], c.GroupID)
		}
	}

	var plan rewrite.Plan
	for _, path := range files {
		reps := perFile[path]
		helpers := helpersPerFile[path]
		if len(reps) == 0 && len(helpers) == 0 {
			continue
		}

		sort.Slice(reps, func(i, j int) bool { return reps[i].Range.Start.Line > reps[j].Range.Start.Line })
		lines := splitLines(original[path])
		for _, r := range reps {
			var err error
			lines, err = spliceLines(lines, r.Range, r.NewText)
			if err != nil {
				return rewrite.Plan{}, fmt.Errorf("merge: %w", err)
			}
		}
		content := strings.Join(lines, "\n")
		if len(lines) > 0 {
			content += "\n"
		}

		for _, h := range helpers {
			if h.ImportPath != "" {
				content = insertImport(content, h.ImportPath)
			}
			content = strings.TrimRight(content, "\n") + "\n\n" + strings.TrimSpace(h.Text) + "\n"
		}

		lang := langPerFile[path]
		if lang == "" {
			lang = langs.Go
		}
		plan.Edits = append(plan.Edits, rewrite.Edit{
			Path:     path,
			NewBytes: []byte(content),
			Language: lang,
			Cause:    "dedup:" + strings.Join(dedupeStrings(causesPerFile[path]), ","),
		})
	}
	return plan, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// insertImport inserts path into Go source's canonical import block if
// not already present.
// It targets Go's `import ( ... )` block form; single-line `import "x"`
// sources and non-Go languages are left untouched (their call sites are
// expected to already carry any required import via the template).
func insertImport(content, path string) string {
	quoted := `"` + path + `"`
	if strings.Contains(content, quoted) {
		return content
	}
	idx := strings.Index(content, "import (")
	if idx < 0 {
		return content
	}
	insertAt := idx + len("import (")
	return content[:insertAt] + "\n\t" + quoted + content[insertAt:]
}

// Locker serializes concurrent Apply calls that touch overlapping
// files, acquiring per-file advisory locks in sorted path order so two
// concurrent callers never deadlock against each other.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

func (l *Locker) lockFor(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	return m
}

// Lock acquires every path's advisory lock in sorted order and returns
// a function that releases them all.
func (l *Locker) Lock(paths []string) func() {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	mutexes := make([]*sync.Mutex, len(sorted))
	for i, p := range sorted {
		mutexes[i] = l.lockFor(p)
	}
	for _, m := range mutexes {
		m.Lock()
	}
	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}
