package refactor

import (
	"bytes"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/astgrepmcp/astgrepmcp/internal/errors"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/astgrepmcp/astgrepmcp/internal/refactor/scope"
	"github.com/astgrepmcp/astgrepmcp/internal/rewrite"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.KindIO, "refactor.readFile", err).WithPath(path)
	}
	return data, nil
}

// ExtractResult is extract_function's return value.
type ExtractResult struct {
	Status   RenameStatus
	Diffs    []rewrite.FileDiff
	Applied  []string
	BackupID string
}

var identifierRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

var assignmentRe = map[langs.Language]*regexp.Regexp{
	langs.Go:         regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*:?=[^=]`),
	langs.Python:     regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=[^=]`),
	langs.JavaScript: regexp.MustCompile(`^\s*(?:const|let|var)?\s*([A-Za-z_]\w*)\s*=[^=]`),
	langs.TypeScript: regexp.MustCompile(`^\s*(?:const|let|var)?\s*([A-Za-z_]\w*)\s*=[^=]`),
	langs.Rust:       regexp.MustCompile(`^\s*(?:let\s+(?:mut\s+)?)?([A-Za-z_]\w*)\s*=[^=]`),
	langs.Java:       regexp.MustCompile(`^\s*(?:[\w<>\[\]]+\s+)?([A-Za-z_]\w*)\s*=[^=]`),
	langs.CSharp:     regexp.MustCompile(`^\s*(?:[\w<>\[\]]+\s+)?([A-Za-z_]\w*)\s*=[^=]`),
}

// breakContinueRe and returnRe flag the control-flow edge cases that
// must refuse extraction: an early return, or a break/continue whose
// loop is not itself contained in the selection.
var breakContinueRe = regexp.MustCompile(`\b(break|continue)\b`)
var returnRe = regexp.MustCompile(`\breturn\b`)
var loopKeywordRe = map[langs.Language]*regexp.Regexp{
	langs.Go:         regexp.MustCompile(`^\s*for\b`),
	langs.Python:     regexp.MustCompile(`^\s*(for|while)\b`),
	langs.JavaScript: regexp.MustCompile(`^\s*(for|while)\b`),
	langs.TypeScript: regexp.MustCompile(`^\s*(for|while)\b`),
	langs.Rust:       regexp.MustCompile(`^\s*(for|while|loop)\b`),
	langs.Java:       regexp.MustCompile(`^\s*(for|while)\b`),
	langs.CSharp:     regexp.MustCompile(`^\s*(for|while|foreach)\b`),
}

// ExtractFunction isolates lines [startLine, endLine] of path's
// enclosing function, infers parameters (read inside, bound outside
// and above) and returns (bound inside, read after within the same
// enclosing scope), and replaces the selection with a call to a new
// function generated adjacent to the original.
func ExtractFunction(engine *rewrite.Engine, path string, startLine, endLine int, newName string, lang langs.Language, dryRun bool) (ExtractResult, error) {
	content, err := readFile(path)
	if err != nil {
		return ExtractResult{}, err
	}
	lines := strings.Split(string(content), "\n")
	if startLine < 1 || endLine > len(lines) || startLine > endLine {
		return ExtractResult{}, errors.New(errors.KindValidationFailed, "refactor.ExtractFunction", errMsg("selection out of range")).WithPath(path)
	}

	anchors := scope.ScanAnchors(content, lang)
	tree := scope.Build(anchors, matcher.Position{Line: len(lines) + 1, Column: 1})
	node := tree.InnermostAt(matcher.Position{Line: startLine, Column: 1})
	fn := enclosingFunction(node)
	if fn == nil {
		return ExtractResult{}, errors.New(errors.KindValidationFailed, "refactor.ExtractFunction", errMsg("selection is not inside a function")).WithPath(path)
	}
	if endLine >= fn.Range.End.Line {
		return ExtractResult{}, errors.New(errors.KindValidationFailed, "refactor.ExtractFunction", errMsg("selection extends past its enclosing function")).WithPath(path)
	}

	selection := lines[startLine-1 : endLine]
	if err := checkControlFlowBoundaries(selection, lang); err != nil {
		return ExtractResult{}, errors.New(errors.KindValidationFailed, "refactor.ExtractFunction", err).WithPath(path)
	}

	beforeLines := lines[fn.Range.Start.Line-1 : startLine-1]
	afterLines := lines[endLine:fn.Range.End.Line-1]
	fnSignature := lines[fn.Range.Start.Line-1]

	params := inferParameters(selection, beforeLines, fnSignature, lang)
	returns := inferReturns(selection, afterLines, lang)

	newFn, call, err := generate(newName, params, returns, selection, lang)
	if err != nil {
		return ExtractResult{}, errors.New(errors.KindInternal, "refactor.ExtractFunction", err).WithPath(path)
	}

	out := make([]string, 0, len(lines)+len(strings.Split(newFn, "\n"))+1)
	out = append(out, lines[:startLine-1]...)
	out = append(out, call)
	out = append(out, lines[endLine:fn.Range.End.Line]...)
	out = append(out, newFn)
	out = append(out, lines[fn.Range.End.Line:]...)

	newBytes := []byte(strings.Join(out, "\n"))

	plan := rewrite.Plan{Edits: []rewrite.Edit{{
		Path:     path,
		NewBytes: newBytes,
		Language: lang,
		Cause:    "extract:" + newName,
	}}}

	if dryRun {
		diffs, err := engine.Preview(plan)
		if err != nil {
			return ExtractResult{}, err
		}
		return ExtractResult{Status: StatusDryRun, Diffs: diffs}, nil
	}

	result, err := engine.Apply(plan, rewrite.ApplyOptions{MakeBackup: true, ValidateSyntax: true})
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{Status: StatusApplied, Applied: result.AppliedPaths, BackupID: result.BackupID}, nil
}

func enclosingFunction(n *scope.Node) *scope.Node {
	for _, a := range n.Ancestors() {
		if a.Kind == scope.Function {
			return a
		}
	}
	return nil
}

// checkControlFlowBoundaries refuses selections that cross control-flow
// boundaries: a return that would escape the enclosing function, or a
// break/continue whose loop is not itself inside the selection.
func checkControlFlowBoundaries(selection []string, lang langs.Language) error {
	loopRe := loopKeywordRe[lang]
	hasOwnLoop := false
	for _, l := range selection {
		if loopRe != nil && loopRe.MatchString(l) {
			hasOwnLoop = true
		}
	}
	for _, l := range selection {
		if returnRe.MatchString(l) {
			return errMsg("selection contains a return that would escape the enclosing function")
		}
		if breakContinueRe.MatchString(l) && !hasOwnLoop {
			return errMsg("selection contains a break/continue without its own loop")
		}
	}
	return nil
}

func inferParameters(selection, before []string, fnSignature string, lang langs.Language) []string {
	boundBefore := boundIdentifiers(before, lang)
	for _, p := range functionParamNames(fnSignature, lang) {
		boundBefore[p] = true
	}
	usedInside := usedIdentifiers(selection, lang)
	boundInside := boundIdentifiers(selection, lang)

	var params []string
	seen := map[string]bool{}
	for _, id := range usedInside {
		if boundBefore[id] && !boundInside[id] && !seen[id] {
			params = append(params, id)
			seen[id] = true
		}
	}
	sort.Strings(params)
	return params
}

func inferReturns(selection, after []string, lang langs.Language) []string {
	boundInside := boundIdentifiers(selection, lang)
	usedAfter := usedIdentifiers(after, lang)

	var returns []string
	seen := map[string]bool{}
	for id := range boundInside {
		if usedAfter[id] && !seen[id] {
			returns = append(returns, id)
			seen[id] = true
		}
	}
	sort.Strings(returns)
	return returns
}

func boundIdentifiers(lines []string, lang langs.Language) map[string]bool {
	re := assignmentRe[lang]
	out := map[string]bool{}
	if re == nil {
		return out
	}
	for _, l := range lines {
		if m := re.FindStringSubmatch(l); m != nil {
			out[m[1]] = true
		}
	}
	return out
}

// functionParamNames extracts the bound parameter names from a
// function's signature line, by isolating the parenthesized argument
// list and taking the leading identifier of each comma-separated
// entry (Go/Rust/Java's "name type" ordering; Python/JS's bare name).
func functionParamNames(signature string, lang langs.Language) []string {
	open := strings.Index(signature, "(")
	if open < 0 {
		return nil
	}
	closeIdx := matchingParen(signature, open)
	if closeIdx < 0 {
		return nil
	}
	inner := signature[open+1 : closeIdx]
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	var names []string
	for _, part := range strings.Split(inner, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimPrefix(fields[0], "*")
		name = strings.TrimSuffix(name, ":")
		if id := identifierRe.FindString(name); id != "" {
			names = append(names, id)
		}
	}
	return names
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func usedIdentifiers(lines []string, lang langs.Language) map[string]bool {
	out := map[string]bool{}
	for _, l := range lines {
		for _, id := range identifierRe.FindAllString(l, -1) {
			if !langs.IsReserved(lang, id) {
				out[id] = true
			}
		}
	}
	return out
}

type extractTemplateData struct {
	Name    string
	Params  string
	Returns string
	Body    string
}

var goFuncTmpl = template.Must(template.New("go").Parse(
	`func {{.Name}}({{.Params}}) {{.Returns}} {
{{.Body}}
}`))

var pyFuncTmpl = template.Must(template.New("py").Parse(
	`def {{.Name}}({{.Params}}):
{{.Body}}`))

var jsFuncTmpl = template.Must(template.New("js").Parse(
	`function {{.Name}}({{.Params}}) {
{{.Body}}
}`))

// generate renders the new function body plus the call-site statement
// that replaces the original selection.
func generate(name string, params, returns []string, selection []string, lang langs.Language) (fn string, call string, err error) {
	body := strings.Join(selection, "\n")
	paramList := strings.Join(params, ", ")

	var returnStmt, callLHS, returnSig string
	switch lang {
	case langs.Python, langs.JavaScript, langs.TypeScript:
		if len(returns) > 0 {
			returnStmt = "    return " + strings.Join(returns, ", ")
			body = body + "\n" + returnStmt
			callLHS = strings.Join(returns, ", ") + " = "
		}
	default: // Go and other brace languages with typed signatures
		if len(returns) == 1 {
			returnSig = returns[0]
		} else if len(returns) > 1 {
			returnSig = "(" + strings.Join(returns, ", ") + ")"
		}
		if len(returns) > 0 {
			returnStmt = "\treturn " + strings.Join(returns, ", ")
			body = body + "\n" + returnStmt
			callLHS = strings.Join(returns, ", ") + " := "
		}
	}

	data := extractTemplateData{Name: name, Params: paramList, Returns: returnSig, Body: body}

	var buf bytes.Buffer
	var tmpl *template.Template
	switch lang {
	case langs.Python:
		tmpl = pyFuncTmpl
	case langs.JavaScript, langs.TypeScript:
		tmpl = jsFuncTmpl
	default:
		tmpl = goFuncTmpl
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}

	call = callLHS + name + "(" + paramList + ")"
	return buf.String(), call, nil
}

type errMsg string

func (e errMsg) Error() string { return string(e) }
