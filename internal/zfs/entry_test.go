package zfs

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetPathRemap(t *testing.T) {
	src, err := NewDatasetPath("tank1/foo/tmp")
	require.NoError(t, err)
	oldRoot, err := NewDatasetPath("tank1/foo")
	require.NoError(t, err)
	newRoot, err := NewDatasetPath("tank2/foo")
	require.NoError(t, err)

	got, err := Remap(src, oldRoot, newRoot)
	require.NoError(t, err)
	assert.Equal(t, "tank2/foo/tmp", got.String())
}

func TestDatasetPathRemapNotDescendant(t *testing.T) {
	src, _ := NewDatasetPath("tank1/bar")
	oldRoot, _ := NewDatasetPath("tank1/foo")
	newRoot, _ := NewDatasetPath("tank2/foo")
	_, err := Remap(src, oldRoot, newRoot)
	assert.Error(t, err)
}

func TestByCreateTXGOrdersSnapshotAfterBookmarkOnTie(t *testing.T) {
	ds, _ := NewDatasetPath("tank1/foo")
	entries := []SnapshotEntry{
		{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: KindSnapshot},
		{Dataset: ds, Name: "s1", Guid: 1, CreateTXG: 10, Kind: KindBookmark},
	}
	sort.Sort(ByCreateTXG(entries))
	assert.Equal(t, KindBookmark, entries[0].Kind)
	assert.Equal(t, KindSnapshot, entries[1].Kind)
}

func TestParseListOutput(t *testing.T) {
	ds, _ := NewDatasetPath("tank1/foo")
	out := []byte("tank1/foo@s1\t1\t10\ntank1/foo@s2\t2\t20\n")
	entries, err := parseListOutput(ds, out, false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Guid)
	assert.Equal(t, uint64(20), entries[1].CreateTXG)
}

func TestParseListOutputMalformed(t *testing.T) {
	ds, _ := NewDatasetPath("tank1/foo")
	_, err := parseListOutput(ds, []byte("garbage\n"), false)
	require.Error(t, err)
	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestParseListOutputWithCreation(t *testing.T) {
	ds, _ := NewDatasetPath("tank1/foo")
	out := []byte("tank1/foo@s1\t1\t10\t1700000000\n")
	entries, err := parseListOutput(ds, out, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1700000000), entries[0].Creation.Unix())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient([]byte("cannot destroy: dataset is busy")))
	assert.True(t, IsTransient([]byte("ssh: connect to host x port 22: Connection reset by peer")))
	assert.False(t, IsTransient([]byte("invalid option")))
}
