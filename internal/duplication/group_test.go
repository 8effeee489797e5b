package duplication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
)

func TestBuildGroupsClustersNearDuplicates(t *testing.T) {
	items := []Construct{
		construct("func add(a, b int) int {\n\ttotal := a + b\n\treturn total\n}"),
		construct("func add(x, y int) int {\n\ttotal := x + y\n\treturn total\n}"),
		construct("func add(p, q int) int {\n\ttotal := p + q\n\treturn total\n}"),
	}

	groups := BuildGroups(items, DefaultThreshold)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 3)
	assert.GreaterOrEqual(t, groups[0].MinSimilarity, DefaultThreshold)
}

func TestBuildGroupsUnrelatedConstructsNoGroup(t *testing.T) {
	items := []Construct{
		construct("func add(a, b int) int {\n\ttotal := a + b\n\treturn total\n}"),
		{
			Path:     "b.go",
			Language: langs.Go,
			Kind:     KindFunction,
			Body:     "func shutdownServer(ctx context.Context) error {\n\tlog.Info(\"stopping\")\n\treturn srv.Close()\n}",
		},
	}

	groups := BuildGroups(items, DefaultThreshold)
	assert.Empty(t, groups)
}

func TestBuildGroupsSingletonBucketProducesNoGroup(t *testing.T) {
	items := []Construct{
		construct("func add(a, b int) int {\n\ttotal := a + b\n\treturn total\n}"),
	}
	assert.Empty(t, BuildGroups(items, DefaultThreshold))
}

