package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndHistory(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e1 := Entry{Project: "p", Path: "a.go", Function: "Foo", Cyclomatic: 3, RecordedAt: time.Unix(1, 0)}
	e2 := Entry{Project: "p", Path: "a.go", Function: "Foo", Cyclomatic: 5, RecordedAt: time.Unix(2, 0)}
	require.NoError(t, store.Record(e1))
	require.NoError(t, store.Record(e2))

	history := store.History("p", "a.go", "Foo")
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Cyclomatic)
	assert.Equal(t, 5, history[1].Cyclomatic)
}

func TestHistorySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Record(Entry{Project: "p", Path: "a.go", Function: "Foo", Cyclomatic: 1}))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	history := reopened.History("p", "a.go", "Foo")
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Cyclomatic)
}

func TestHistoryEmptyForUnknownKey(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Empty(t, store.History("p", "missing.go", "Nope"))
}
