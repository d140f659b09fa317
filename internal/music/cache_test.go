package music

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []*QueuedItem {
	user := UserRef{ID: "user-1", Name: "tester"}
	return []*QueuedItem{
		NewVideoItem(user, VideoMetadata{VideoID: "vidA", Title: "Track A", Length: 120}),
		NewPlaylistItem(user, "PLtest", []string{"p1", "p2", "p3"}, PlaylistMetadata{Title: "Mix"}),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	items := testItems()
	items[1].Playlist().Position = 2
	require.NoError(t, store.Save("guild-1", items, 1))

	data, err := store.Load("guild-1")
	require.NoError(t, err)
	assert.Equal(t, 1, data.Position)
	require.Len(t, data.Items, 2)

	video := data.Items[0]
	require.Equal(t, KindVideo, video.Kind())
	assert.Equal(t, "vidA", video.Video().VideoDetails.VideoID)
	assert.Equal(t, 120, video.Video().VideoDetails.Length)

	playlist := data.Items[1]
	require.Equal(t, KindPlaylist, playlist.Kind())
	assert.Equal(t, "PLtest", playlist.Playlist().PlaylistID)
	assert.Equal(t, []string{"p1", "p2", "p3"}, playlist.Playlist().VideoList)
	assert.Equal(t, 2, playlist.Playlist().Position)
}

func TestSnapshotLoadMissing(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	_, err = store.Load("guild-unknown")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotLoadStale(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Save("guild-1", testItems(), 0))

	// Backdate the snapshot past the retention window.
	backdate(t, filepath.Join(dir, "guild-1.json"), 2*time.Hour)

	_, err = store.Load("guild-1")
	assert.ErrorIs(t, err, ErrSnapshotStale)
}

func TestSnapshotLoadCorruptFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	path := filepath.Join(dir, "guild-1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = store.Load("guild-1")
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSnapshotLoadEmptyQueue(t *testing.T) {
	store, err := NewSnapshotStore(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Save("guild-1", nil, 0))

	_, err = store.Load("guild-1")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSnapshotStore(dir, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Save("fresh", testItems(), 0))
	require.NoError(t, store.Save("stale", testItems(), 0))
	backdate(t, filepath.Join(dir, "stale.json"), 2*time.Hour)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("???"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	removed, err := store.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(filepath.Join(dir, "fresh.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "stale.json"))
	assert.True(t, os.IsNotExist(err))
}

// backdate rewrites a snapshot file's update_time to the past.
func backdate(t *testing.T, path string, age time.Duration) {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var file map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &file))

	stamp, err := json.Marshal(time.Now().Add(-age).UnixMilli())
	require.NoError(t, err)
	file["update_time"] = stamp

	updated, err := json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, updated, 0o644))
}
