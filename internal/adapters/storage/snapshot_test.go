package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	Name  string
	Value int
}

func TestSnapshotRoundTripsAndStaysFresh(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONSnapshotStore(dir)
	require.NoError(t, err)

	entries := []fixture{{Name: "a", Value: 1}, {Name: "b", Value: 2}}
	require.NoError(t, store.Save("routes", time.Now().Unix(), entries))

	var got []fixture
	fresh, err := store.Load("routes", time.Hour, &got)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, entries, got)
}

func TestSnapshotStaleBeyondTTL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONSnapshotStore(dir)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour).Unix()
	require.NoError(t, store.Save("pools", old, []fixture{{Name: "x"}}))

	var got []fixture
	fresh, err := store.Load("pools", time.Minute, &got)
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestSnapshotMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONSnapshotStore(dir)
	require.NoError(t, err)

	var got []fixture
	fresh, err := store.Load("missing", time.Hour, &got)
	require.NoError(t, err)
	assert.False(t, fresh)
}
