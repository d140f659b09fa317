package music

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedItemVariants(t *testing.T) {
	user := UserRef{ID: "user-1", Name: "tester"}

	video := NewVideoItem(user, VideoMetadata{VideoID: "vidA", Title: "Track A"})
	assert.Equal(t, KindVideo, video.Kind())
	assert.Equal(t, "Track A", video.Title())
	assert.NotNil(t, video.Video())
	assert.Nil(t, video.Playlist())

	playlist := NewPlaylistItem(user, "PLtest", []string{"p1"}, PlaylistMetadata{Title: "Mix"})
	assert.Equal(t, KindPlaylist, playlist.Kind())
	assert.Equal(t, "Mix", playlist.Title())
	assert.Nil(t, playlist.Video())
	assert.NotNil(t, playlist.Playlist())

	assert.NotEqual(t, video.ID(), playlist.ID())
}

func TestQueuedItemDeletion(t *testing.T) {
	item := NewVideoItem(UserRef{ID: "u"}, VideoMetadata{VideoID: "v"})
	assert.False(t, item.IsDeleted())
	item.markDeleted()
	assert.True(t, item.IsDeleted())
}

func TestQueuedItemUnmarshalRejectsUnknownShape(t *testing.T) {
	var item QueuedItem
	err := json.Unmarshal([]byte(`{"id":"x","user":{"id":"u"}}`), &item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither")
}

func TestQueuedItemMarshalFlattensVariant(t *testing.T) {
	item := NewPlaylistItem(UserRef{ID: "u"}, "PLx", []string{"a", "b"}, PlaylistMetadata{Title: "Mix"})
	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "videoList")
	assert.Contains(t, m, "playlistID")
	assert.NotContains(t, m, "playlist")
}
