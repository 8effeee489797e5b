package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceSimilarityIdenticalTokensScoreOne(t *testing.T) {
	tokens := Tokenize(Normalize("if a > b { return a } else { return b }"))
	score, err := SequenceSimilarity(tokens, tokens)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestSequenceSimilarityBothEmptyScoresOne(t *testing.T) {
	score, err := SequenceSimilarity(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestSequenceSimilarityOneEmptyScoresZero(t *testing.T) {
	score, err := SequenceSimilarity([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestSequenceSimilarityRenamedIdentifiersStillHighlySimilar(t *testing.T) {
	a := Tokenize(Normalize("if a > b { return a } else { return b }"))
	b := Tokenize(Normalize("if x > y { return x } else { return y }"))
	score, err := SequenceSimilarity(a, b)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
}

func TestControlFlowSkeletonUsedAboveMaxLength(t *testing.T) {
	long := make([]string, maxSequenceLength+10)
	for i := range long {
		long[i] = "x"
	}
	long[5] = "if"
	long[50] = "return"

	other := strings.Split("if return", " ")
	score, err := SequenceSimilarity(long, other)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
}
