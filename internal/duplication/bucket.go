package duplication

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/astgrepmcp/astgrepmcp/internal/similarity"
)

// structuralPrefixTokens is N in "first-N structural tokens" used to
// seed the structural hash below.
const structuralPrefixTokens = 12

var controlFlowKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"case": true, "try": true, "catch": true, "match": true, "loop": true,
}

// structuralKeywords are identifier-shaped tokens kept literal in the
// structural prefix; every other identifier-shaped token is folded to a
// placeholder so two constructs that differ only by variable/parameter
// naming still land in the same bucket.
var structuralKeywords = map[string]bool{
	"func": true, "function": true, "fn": true, "def": true, "class": true,
	"struct": true, "interface": true, "return": true, "var": true,
	"let": true, "const": true, "if": true, "else": true, "for": true,
	"while": true, "switch": true, "case": true, "try": true, "catch": true,
}

// Features is the normalized feature vector one construct is bucketed
// and compared by.
type Features struct {
	Normalized string
	Tokens     []string
	Complexity int
	Comparable similarity.Comparable
	BucketKey  uint64
}

// Extract normalizes and tokenizes a construct body and computes the
// feature vector bucketing and stage-1/2 similarity both need.
func Extract(c Construct) Features {
	normalized := similarity.Normalize(c.Body)
	tokens := similarity.Tokenize(normalized)
	cmp := similarity.NewComparable(c.Body)

	f := Features{
		Normalized: normalized,
		Tokens:     tokens,
		Complexity: approxComplexity(tokens),
		Comparable: cmp,
	}
	f.BucketKey = structuralHash(tokens, f.Complexity, indentDepthEstimate(c.Body))
	return f
}

// approxComplexity is a cheap control-flow-keyword count (+1), standing
// in for a full cyclomatic count so bucketing stays O(tokens) and never
// invokes the matcher a second time; C12 computes the precise figure
// separately when quality metrics are requested.
func approxComplexity(tokens []string) int {
	count := 1
	for _, t := range tokens {
		if controlFlowKeywords[t] {
			count++
		}
	}
	return count
}

// calledSignatureHash hashes the sorted set of call-site identifiers
// (an identifier token immediately followed by "("), a coarse stand-in
// for the called-function signature set.
func calledSignatureHash(tokens []string) uint64 {
	var names []string
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i+1] == "(" && isIdentifierToken(tokens[i]) {
			names = append(names, tokens[i])
		}
	}
	sortStrings(names)
	return xxhash.Sum64String(strings.Join(names, ","))
}

// structuralToken maps a plain identifier (a variable/parameter/type
// name that isn't one of structuralKeywords) to a shared placeholder,
// and leaves punctuation, numbers, and keywords as-is.
func structuralToken(t string) string {
	if structuralKeywords[t] || !isIdentifierToken(t) {
		return t
	}
	return "\x01ID"
}

func isIdentifierToken(t string) bool {
	if t == "" {
		return false
	}
	for _, r := range t {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// indentDepthEstimate counts the deepest run of leading tab/space-group
// indentation among the construct's normalized-before lines. Extract
// already collapses whitespace in Normalized, so this works off the raw
// body instead.
func indentDepthEstimate(body string) int {
	max := 0
	for _, line := range strings.Split(body, "\n") {
		depth := 0
		for _, r := range line {
			if r == '\t' {
				depth++
			} else if r == ' ' {
				depth++
			} else {
				break
			}
		}
		if depth > max {
			max = depth
		}
	}
	return max / 2
}

// logSizeBucket buckets token count logarithmically so constructs of
// wildly different size never collide, without needing an exact count
// match.
func logSizeBucket(tokenCount int) int {
	if tokenCount <= 0 {
		return 0
	}
	return int(math.Log2(float64(tokenCount)))
}

// structuralHash blends the first-N structural tokens, approximate
// complexity, called-function-signature hash, indentation-depth
// estimate, and logarithmic size bucket into one bucket key.
func structuralHash(tokens []string, complexity, indentDepth int) uint64 {
	prefix := tokens
	if len(prefix) > structuralPrefixTokens {
		prefix = prefix[:structuralPrefixTokens]
	}
	skeleton := make([]string, len(prefix))
	for i, t := range prefix {
		skeleton[i] = structuralToken(t)
	}

	var b strings.Builder
	b.WriteString(strings.Join(skeleton, " "))
	b.WriteByte('\x00')
	writeInt(&b, complexity)
	b.WriteByte('\x00')
	writeUint(&b, calledSignatureHash(tokens))
	b.WriteByte('\x00')
	writeInt(&b, indentDepth)
	b.WriteByte('\x00')
	writeInt(&b, logSizeBucket(len(tokens)))

	return xxhash.Sum64String(b.String())
}

func writeInt(b *strings.Builder, n int) {
	if n == 0 {
		b.WriteByte('0')
		return
	}
	if n < 0 {
		b.WriteByte('-')
		n = -n
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	b.Write(digits[i:])
}

func writeUint(b *strings.Builder, n uint64) {
	if n == 0 {
		b.WriteByte('0')
		return
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	b.Write(digits[i:])
}
