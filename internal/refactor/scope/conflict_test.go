package scope

import (
	"testing"

	"github.com/astgrepmcp/astgrepmcp/internal/langs"
	"github.com/astgrepmcp/astgrepmcp/internal/matcher"
	"github.com/stretchr/testify/assert"
)

func TestDetectConflictsReservedWord(t *testing.T) {
	conflicts := DetectConflicts(nil, nil, map[string]*Tree{}, "old", "func", langs.Go)
	require := assert.New(t)
	require.NotEmpty(conflicts)
	require.Equal(ReasonReservedWord, conflicts[0].Reason)
}

func TestDetectConflictsShadow(t *testing.T) {
	tree := Build(nil, matcher.Position{Line: 100, Column: 1})
	trees := map[string]*Tree{"a.py": tree}

	oldRefs := []Reference{
		{Path: "a.py", Range: matcher.Range{Start: matcher.Position{Line: 5, Column: 1}}, Kind: Use},
	}
	newRefs := []Reference{
		{Path: "a.py", Range: matcher.Range{Start: matcher.Position{Line: 2, Column: 1}}, Kind: Definition},
	}

	conflicts := DetectConflicts(oldRefs, newRefs, trees, "old", "new", langs.Go)
	found := false
	for _, c := range conflicts {
		if c.Reason == ReasonShadow {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDetectConflictsNoConflictWhenClean(t *testing.T) {
	tree := Build(nil, matcher.Position{Line: 100, Column: 1})
	trees := map[string]*Tree{"a.py": tree}

	oldRefs := []Reference{
		{Path: "a.py", Range: matcher.Range{Start: matcher.Position{Line: 5, Column: 1}}, Kind: Use},
	}

	conflicts := DetectConflicts(oldRefs, nil, trees, "old", "fresh_name", langs.Go)
	assert.Empty(t, conflicts)
}
