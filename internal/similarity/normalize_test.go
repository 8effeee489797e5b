package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsCommentsAndWhitespace(t *testing.T) {
	body := "func add(a, b int) int { // sums two ints\n  return a + b\n}\n"
	got := Normalize(body)
	assert.NotContains(t, got, "sums two ints")
	assert.NotContains(t, got, "\n")
}

func TestNormalizeStripsBlockComments(t *testing.T) {
	body := "x := 1 /* block\nspanning lines */ + 2"
	got := Normalize(body)
	assert.Equal(t, "x := 1 + 2", got)
}

func TestTokenizeStemsIdentifiers(t *testing.T) {
	a := Tokenize(Normalize("computeTotal"))
	b := Tokenize(Normalize("computeTotals"))
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.Equal(t, a[0], b[0], "stemming should fold singular/plural variants to the same token")
}

func TestTokenizeKeepsPunctuationAsTokens(t *testing.T) {
	tokens := Tokenize(Normalize("a+b"))
	assert.Contains(t, tokens, "+")
}
