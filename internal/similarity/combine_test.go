package similarity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareUnrelatedBodiesExitsAtStageMinHash(t *testing.T) {
	a := NewComparable("func renderDashboardWidget(cfg WidgetConfig) (*Widget, error) { return buildWidget(cfg) }")
	b := NewComparable("func parseNetworkPacket(buf []byte) (Packet, error) { return decodeHeader(buf) }")

	result, err := Compare(a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, StageMinHash, result.Stage)
	assert.Less(t, result.Jaccard, jaccardFloor)
	assert.Equal(t, result.Jaccard, result.Similarity)
}

func TestCompareNearDuplicatesReachesStageSequence(t *testing.T) {
	body := "func add(a, b int) int {\n  total := a + b\n  return total\n}"
	renamed := "func add(x, y int) int {\n  total := x + y\n  return total\n}"

	a := NewComparable(body)
	b := NewComparable(renamed)

	result, err := Compare(a, b, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Stage, StageSequence)
	assert.Greater(t, result.Similarity, 0.0)
}

func TestCompareIdenticalBodiesScoreNearOne(t *testing.T) {
	body := "func add(a, b int) int {\n  total := a + b\n  return total\n}"
	a := NewComparable(body)
	b := NewComparable(body)

	result, err := Compare(a, b, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Similarity, 0.01)
}

type stubEmbedder struct {
	score float64
	err   error
}

func (s stubEmbedder) Similarity(a, b string) (float64, error) {
	return s.score, s.err
}

func TestCompareUsesSemanticStageWhenGateClearedAndEmbedderPresent(t *testing.T) {
	body := "func add(a, b int) int {\n  total := a + b\n  return total\n}"
	renamed := "func add(x, y int) int {\n  total := x + y\n  return total\n}"
	a := NewComparable(body)
	b := NewComparable(renamed)

	result, err := Compare(a, b, stubEmbedder{score: 0.9})
	require.NoError(t, err)
	if result.Stage == StageSemantic {
		assert.Equal(t, 0.9, result.Semantic)
	}
}

func TestCompareSmallBodiesSkipMinHashStage(t *testing.T) {
	a := NewComparable("func f(x int) int { return x }")
	b := NewComparable("func g(y int) int { return y }")
	require.Less(t, len(a.Tokens), SmallCodeTokenThreshold)
	require.Less(t, len(b.Tokens), SmallCodeTokenThreshold)

	result, err := Compare(a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, StageSequence, result.Stage)
	assert.Equal(t, result.Sequence, result.Similarity)
	assert.Zero(t, result.Jaccard)
}

func TestCompareEmbedderErrorPropagates(t *testing.T) {
	body := "func add(a, b int) int {\n  total := a + b\n  return total\n}"
	a := NewComparable(body)
	b := NewComparable(body)

	_, err := Compare(a, b, stubEmbedder{err: errors.New("embedding failed")})
	assert.Error(t, err)
}
