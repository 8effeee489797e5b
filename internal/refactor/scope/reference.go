package scope

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/astgrepmcp/astgrepmcp/internal/executor"
	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// ReferenceKind classifies one occurrence of a symbol.
type ReferenceKind int

const (
	Use ReferenceKind = iota
	Definition
	Import
	Export
)

// Reference is one occurrence of a symbol, tagged with its classification
// and innermost enclosing scope.
type Reference struct {
	Path    string
	Range   matcher.Range
	Kind    ReferenceKind
	ScopeID int
}

var definitionPrefixes = map[langs.Language][]string{
	langs.Go:         {"func ", "type ", "var ", "const "},
	langs.Python:     {"def ", "class "},
	langs.JavaScript: {"function ", "class ", "const ", "let ", "var "},
	langs.TypeScript: {"function ", "class ", "const ", "let ", "var ", "interface ", "type "},
	langs.Java:       {"class ", "interface "},
	langs.CSharp:     {"class ", "interface "},
	langs.Rust:       {"fn ", "struct ", "enum ", "let "},
}

var importKeywords = map[langs.Language]string{
	langs.Go:         "import",
	langs.Python:     "import",
	langs.JavaScript: "import",
	langs.TypeScript: "import",
	langs.Java:       "import",
	langs.CSharp:     "using",
	langs.Rust:       "use",
}

var exportKeywords = map[langs.Language]string{
	langs.JavaScript: "export",
	langs.TypeScript: "export",
}

// FindReferences asks the executor for every occurrence of an exact
// identifier match (ast-grep pattern search on the bare symbol),
// excludes hits inside quoted string literals or after a line-comment
// marker (block comments are not detected), and classifies each
// surviving occurrence as a definition, use, import, or export by
// inspecting the text preceding it on its line, a heuristic stand-in
// for the full binder analysis a real compiler front-end would do,
// since the core never parses source itself.
func FindReferences(ctx context.Context, exec *executor.Executor, roots []string, symbol string, lang langs.Language) ([]Reference, error) {
	args := []string{"--pattern", symbol, "--lang", string(lang)}
	args = append(args, roots...)
	matches, err := exec.RunMatches(ctx, args)
	if err != nil {
		return nil, err
	}

	wordRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)

	contentCache := map[string][]string{}
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		lines, ok := contentCache[m.File]
		if !ok {
			data, err := os.ReadFile(m.File)
			if err != nil {
				continue
			}
			lines = strings.Split(string(data), "\n")
			contentCache[m.File] = lines
		}
		if m.Range.Start.Line-1 >= len(lines) {
			continue
		}
		line := lines[m.Range.Start.Line-1]
		if !wordRe.MatchString(line) {
			continue
		}
		if insideStringLiteral(line, m.Range.Start.Column-1) || insideLineComment(line, m.Range.Start.Column-1, lang) {
			continue
		}

		refs = append(refs, Reference{
			Path:  m.File,
			Range: m.Range,
			Kind:  classify(line, symbol, lang),
		})
	}
	return refs, nil
}

// insideStringLiteral reports whether byte offset col in line falls
// within a quoted string, by scanning from the start of the line.
func insideStringLiteral(line string, col int) bool {
	inString := false
	var quote byte
	escaped := false
	for i := 0; i < len(line) && i < col; i++ {
		c := line[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quote {
				inString = false
			}
			continue
		}
		if c == '"' || c == '\'' {
			inString = true
			quote = c
		}
	}
	return inString
}

// insideLineComment reports whether byte offset col in line falls after
// a line-comment marker ("#" for Python, "//" otherwise) outside a string.
func insideLineComment(line string, col int, lang langs.Language) bool {
	marker := "//"
	if lang == langs.Python {
		marker = "#"
	}
	for i := 0; i < col && i < len(line); i++ {
		if strings.HasPrefix(line[i:], marker) && !insideStringLiteral(line, i) {
			return true
		}
	}
	return false
}

func classify(line, symbol string, lang langs.Language) ReferenceKind {
	trimmed := strings.TrimSpace(line)

	if kw, ok := importKeywords[lang]; ok && strings.HasPrefix(trimmed, kw+" ") {
		return Import
	}
	if kw, ok := exportKeywords[lang]; ok && strings.HasPrefix(trimmed, kw+" ") {
		return Export
	}
	for _, prefix := range definitionPrefixes[lang] {
		if strings.HasPrefix(trimmed, prefix) && strings.HasPrefix(trimmed[len(prefix):], symbol) {
			return Definition
		}
	}
	return Use
}
