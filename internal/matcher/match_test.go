package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMatchConvertsToOneBased(t *testing.T) {
	raw := []byte(`{
		"file": "a.py",
		"range": {"start": {"line": 0, "column": 4}, "end": {"line": 0, "column": 10}},
		"text": "foo()",
		"metaVariables": {"$X": {"text": "bar"}}
	}`)

	m, err := DecodeMatch(raw)
	require.NoError(t, err)
	assert.Equal(t, "a.py", m.File)
	assert.Equal(t, Position{Line: 1, Column: 5}, m.Range.Start)
	assert.Equal(t, Position{Line: 1, Column: 11}, m.Range.End)
	assert.Equal(t, "foo()", m.Text)
	assert.Equal(t, BindingText, m.MetaVars["$X"].Kind)
	assert.Equal(t, "bar", m.MetaVars["$X"].Text)
}

func TestDecodeMatchFullMatchBinding(t *testing.T) {
	raw := []byte(`{
		"file": "a.py", "text": "f",
		"range": {"start":{"line":0,"column":0},"end":{"line":0,"column":1}},
		"metaVariables": {"$Y": {"text": "y", "range": {"start":{"line":1,"column":2},"end":{"line":1,"column":3}}}}
	}`)
	m, err := DecodeMatch(raw)
	require.NoError(t, err)
	b := m.MetaVars["$Y"]
	assert.Equal(t, BindingFullMatch, b.Kind)
	assert.Equal(t, 2, b.Range.Start.Line)
}

func TestDecodeMatchesArray(t *testing.T) {
	raw := []byte(`[
		{"file":"a.py","text":"x","range":{"start":{"line":0,"column":0},"end":{"line":0,"column":1}}},
		{"file":"b.py","text":"y","range":{"start":{"line":1,"column":0},"end":{"line":1,"column":1}}}
	]`)
	ms, err := DecodeMatches(raw)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "a.py", ms[0].File)
	assert.Equal(t, "b.py", ms[1].File)
}

func TestDecodeMatchMalformed(t *testing.T) {
	_, err := DecodeMatch([]byte(`not json`))
	assert.Error(t, err)
}
