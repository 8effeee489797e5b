// Package similarity implements the three-stage similarity pipeline
// (C8): MinHash+LSH candidate filtering, AST-normalized sequence
// comparison, and an optional semantic-embedding refinement stage.
package similarity

import (
	"regexp"
	"strings"

	"github.com/surgebase/porter2"
)

var (
	lineCommentRe  = regexp.MustCompile(`(//|#).*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	tokenRe        = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|[0-9]+|\S`)
)

// Normalize strips comments, collapses whitespace, and canonicalizes
// indentation so structurally identical bodies compare as textually
// identical even when formatted differently.
func Normalize(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		l = lineCommentRe.ReplaceAllString(l, "")
		lines[i] = l
	}
	joined := strings.Join(lines, "\n")
	joined = blockCommentRe.ReplaceAllString(joined, "")
	joined = whitespaceRe.ReplaceAllString(joined, " ")
	return strings.TrimSpace(joined)
}

// Tokenize splits a normalized body into stemmed, lowercased word
// tokens, used both as MinHash shingle input and for stage-2
// comparison. Identifier stemming (porter2) reduces spurious
// dissimilarity from naming variants like computeTotal vs
// computeTotals.
func Tokenize(normalized string) []string {
	raw := tokenRe.FindAllString(normalized, -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		lower := strings.ToLower(t)
		if isWord(lower) {
			lower = porter2.Stem(lower)
		}
		tokens = append(tokens, lower)
	}
	return tokens
}

func isWord(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return len(s) > 0
}
