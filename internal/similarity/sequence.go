package similarity

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// maxSequenceLength is the token-sequence length above which stage 2
// falls back to comparing a condensed control-flow skeleton instead of
// the full normalized text, keeping edlib's LCS comparison (quadratic
// in input length) affordable on very large functions.
const maxSequenceLength = 500

var controlFlowTokens = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"case": true, "return": true, "break": true, "continue": true,
	"try": true, "catch": true, "match": true, "loop": true,
}

// SequenceSimilarity compares two token sequences structurally using
// edlib.StringsSimilarity with the Lcs algorithm, which rewards shared
// subsequence order the way two renamed-but-structurally-identical
// functions would agree.
func SequenceSimilarity(a, b []string) (float64, error) {
	if len(a) > maxSequenceLength || len(b) > maxSequenceLength {
		a = controlFlowSkeleton(a)
		b = controlFlowSkeleton(b)
	}
	if len(a) == 0 && len(b) == 0 {
		return 1.0, nil
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0, nil
	}

	score, err := edlib.StringsSimilarity(strings.Join(a, "\x1f"), strings.Join(b, "\x1f"), edlib.Lcs)
	if err != nil {
		return 0, err
	}
	return float64(score), nil
}

// controlFlowSkeleton reduces a token sequence to just its control-flow
// keywords, in order, so two very large functions can still be compared
// by shape without paying edlib's quadratic cost on the full body.
func controlFlowSkeleton(tokens []string) []string {
	out := make([]string, 0, len(tokens)/8)
	for _, t := range tokens {
		if controlFlowTokens[t] {
			out = append(out, t)
		}
	}
	return out
}
