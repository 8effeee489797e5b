package scope

import (
	"testing"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/stretchr/testify/assert"
)

func TestBuildNestsFunctionInsideModule(t *testing.T) {
	anchors := []Anchor{
		{Kind: Function, Range: matcher.Range{
			Start: matcher.Position{Line: 2, Column: 1},
			End:   matcher.Position{Line: 5, Column: 1},
		}},
	}
	tree := Build(anchors, matcher.Position{Line: 10, Column: 1})

	require := assert.New(t)
	require.Len(tree.Root.Children, 1)
	require.Equal(Function, tree.Root.Children[0].Kind)

	inner := tree.InnermostAt(matcher.Position{Line: 3, Column: 1})
	require.Equal(Function, inner.Kind)

	outer := tree.InnermostAt(matcher.Position{Line: 8, Column: 1})
	require.Equal(Module, outer.Kind)
}

func TestBuildNestsBlockInsideFunction(t *testing.T) {
	anchors := []Anchor{
		{Kind: Function, Range: matcher.Range{
			Start: matcher.Position{Line: 1, Column: 1},
			End:   matcher.Position{Line: 10, Column: 1},
		}},
		{Kind: Block, Range: matcher.Range{
			Start: matcher.Position{Line: 3, Column: 1},
			End:   matcher.Position{Line: 6, Column: 1},
		}},
	}
	tree := Build(anchors, matcher.Position{Line: 12, Column: 1})

	inner := tree.InnermostAt(matcher.Position{Line: 4, Column: 1})
	assert.Equal(t, Block, inner.Kind)
	assert.Equal(t, Function, inner.Parent.Kind)
}

func TestScanAnchorsGo(t *testing.T) {
	src := `package p

func Foo() {
	if true {
		bar()
	}
}
`
	anchors := ScanAnchors([]byte(src), langs.Go)
	assert.Len(t, anchors, 1)
	assert.Equal(t, Function, anchors[0].Kind)
	assert.Equal(t, 3, anchors[0].Range.Start.Line)
}

func TestScanAnchorsPython(t *testing.T) {
	src := "def foo():\n    x = 1\n    return x\n\ndef bar():\n    return 2\n"
	anchors := ScanAnchors([]byte(src), langs.Python)
	assert.Len(t, anchors, 2)
	assert.Equal(t, 1, anchors[0].Range.Start.Line)
	assert.Equal(t, 5, anchors[1].Range.Start.Line)
}
