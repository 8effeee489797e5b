package scope

import (
	"regexp"
	"strings"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
)

// anchorPattern pairs a per-language keyword regex with the Kind it
// opens. Matching is line-oriented; the anchor's range closes at the
// matching brace (matchBrace, via scanBraceAnchors) or at the first
// dedented line (scanIndentAnchors), depending on the language's block
// delimiter style.
type anchorPattern struct {
	re   *regexp.Regexp
	kind Kind
}

var bracePatterns = map[langs.Language][]anchorPattern{
	langs.Go: {
		{regexp.MustCompile(`^\s*func\b`), Function},
		{regexp.MustCompile(`^\s*type\s+\w+\s+struct\b`), Class},
	},
	langs.JavaScript: {
		{regexp.MustCompile(`^\s*(export\s+)?(async\s+)?function\b`), Function},
		{regexp.MustCompile(`^\s*class\b`), Class},
	},
	langs.TypeScript: {
		{regexp.MustCompile(`^\s*(export\s+)?(async\s+)?function\b`), Function},
		{regexp.MustCompile(`^\s*(export\s+)?class\b`), Class},
	},
	langs.Java: {
		{regexp.MustCompile(`^\s*(public|private|protected|static|\s)*\w[\w<>\[\]]*\s+\w+\s*\([^;]*$`), Function},
		{regexp.MustCompile(`^\s*(public|private|protected)?\s*class\b`), Class},
	},
	langs.CSharp: {
		{regexp.MustCompile(`^\s*(public|private|protected|internal|static|\s)*\w[\w<>\[\]]*\s+\w+\s*\([^;]*$`), Function},
		{regexp.MustCompile(`^\s*(public|private|protected|internal)?\s*class\b`), Class},
	},
	langs.Rust: {
		{regexp.MustCompile(`^\s*(pub\s+)?fn\b`), Function},
		{regexp.MustCompile(`^\s*(pub\s+)?(struct|impl)\b`), Class},
	},
}

var indentPatterns = map[langs.Language][]anchorPattern{
	langs.Python: {
		{regexp.MustCompile(`^\s*def\b`), Function},
		{regexp.MustCompile(`^\s*class\b`), Class},
	},
}

// ScanAnchors finds function/class boundaries in content by line-level
// keyword matching, then closes each anchor's range either by brace
// depth (curly-brace languages) or by indentation dedent (Python).
// This is a heuristic stand-in for full parsing, consistent with the
// core's non-goal of shipping per-language grammars.
func ScanAnchors(content []byte, lang langs.Language) []Anchor {
	lines := strings.Split(string(content), "\n")

	if patterns, ok := indentPatterns[lang]; ok {
		return scanIndentAnchors(lines, patterns)
	}
	if patterns, ok := bracePatterns[lang]; ok {
		return scanBraceAnchors(lines, patterns, content)
	}
	return nil
}

func scanIndentAnchors(lines []string, patterns []anchorPattern) []Anchor {
	var anchors []Anchor
	for i, line := range lines {
		for _, p := range patterns {
			if !p.re.MatchString(line) {
				continue
			}
			baseIndent := leadingSpaces(line)
			end := len(lines)
			for j := i + 1; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == "" {
					continue
				}
				if leadingSpaces(lines[j]) <= baseIndent {
					end = j
					break
				}
			}
			anchors = append(anchors, Anchor{
				Kind: p.kind,
				Range: matcher.Range{
					Start: matcher.Position{Line: i + 1, Column: 1},
					End:   matcher.Position{Line: end + 1, Column: 1},
				},
			})
		}
	}
	return anchors
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func scanBraceAnchors(lines []string, patterns []anchorPattern, content []byte) []Anchor {
	var anchors []Anchor
	lineOffsets := lineByteOffsets(lines)
	for i, line := range lines {
		for _, p := range patterns {
			if !p.re.MatchString(line) {
				continue
			}
			openByte := findFirstBrace(content, lineOffsets[i])
			if openByte < 0 {
				continue
			}
			endByte := matchBrace(content, openByte)
			if endByte < 0 {
				continue
			}
			endLine, endCol := byteToLineCol(lines, lineOffsets, endByte+1)
			anchors = append(anchors, Anchor{
				Kind: p.kind,
				Range: matcher.Range{
					Start: matcher.Position{Line: i + 1, Column: 1},
					End:   matcher.Position{Line: endLine, Column: endCol},
				},
			})
		}
	}
	return anchors
}

func lineByteOffsets(lines []string) []int {
	offsets := make([]int, len(lines))
	acc := 0
	for i, l := range lines {
		offsets[i] = acc
		acc += len(l) + 1
	}
	return offsets
}

func findFirstBrace(content []byte, from int) int {
	for i := from; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

func matchBrace(content []byte, open int) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func byteToLineCol(lines []string, offsets []int, byteOffset int) (line, col int) {
	for i := len(offsets) - 1; i >= 0; i-- {
		if offsets[i] <= byteOffset {
			return i + 1, byteOffset - offsets[i] + 1
		}
	}
	return 1, 1
}
