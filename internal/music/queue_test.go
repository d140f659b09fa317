package music

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushStartsPlaybackWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	started, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	assert.True(t, started)

	assert.True(t, env.session.IsJoined())
	assert.Equal(t, 1, env.dialer.dialCount())
	assert.Equal(t, []string{"vidA"}, env.engine.playedIDs())
}

func TestPushJoinFailureFailsPush(t *testing.T) {
	env := newTestEnv(t)
	dialErr := errors.New("voice gateway unavailable")
	env.dialer.err = dialErr

	started, err := env.session.Queue().Push(context.Background(), env.videoItem("vidA"), false)
	assert.ErrorIs(t, err, dialErr)
	assert.False(t, started)

	// Nothing joined or played; the item stays queued for a retry.
	assert.Equal(t, StateDisconnected, env.session.State())
	assert.Empty(t, env.engine.playedIDs())
	require.Len(t, env.session.Queue().Items(false), 1)

	// Clearing the fault lets the next push recover and start playback.
	env.dialer.err = nil
	started, err = env.session.Queue().Push(context.Background(), env.videoItem("vidB"), false)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []string{"vidB"}, env.engine.playedIDs())
}

func TestPushQueuesBehindRunningTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)

	started, err := env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)
	assert.False(t, started)

	assert.Equal(t, []string{"vidA"}, env.engine.playedIDs())
	assert.Len(t, env.session.Queue().Items(false), 2)
	assert.Equal(t, 0, env.session.Queue().Position())
}

func TestPushPlayNowJumpsQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)

	started, err := env.session.Queue().Push(ctx, env.videoItem("vidC"), true)
	require.NoError(t, err)
	assert.True(t, started)

	assert.Equal(t, []string{"vidA", "vidC"}, env.engine.playedIDs())
	assert.Equal(t, 2, env.session.Queue().Position())
}

func TestStepThroughPlaylistThenVideo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.playlistItem("p1", "p2"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)

	// Entering the playlist plays its first entry without consuming it.
	video, err := env.session.Queue().Step(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "p1", video.VideoDetails.VideoID)

	video, err = env.session.Queue().Step(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "p2", video.VideoDetails.VideoID)

	video, err = env.session.Queue().Step(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "vidB", video.VideoDetails.VideoID)

	_, err = env.session.Queue().Step(ctx, false, false)
	assert.ErrorIs(t, err, ErrQueueExhausted)

	assert.Equal(t, []string{"vidA", "p1", "p2", "vidB"}, env.engine.playedIDs())
}

func TestStepSkipPlaylistJumpsPastRemainingEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.playlistItem("p1", "p2", "p3"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)

	video, err := env.session.Queue().Step(ctx, true, false)
	require.NoError(t, err)
	assert.Equal(t, "vidB", video.VideoDetails.VideoID)
}

func TestStepAnnouncesPlaylistOrigin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.playlistItem("p1", "p2"), false)
	require.NoError(t, err)

	_, err = env.session.Queue().Step(ctx, false, true)
	require.NoError(t, err)

	env.ann.mu.Lock()
	defer env.ann.mu.Unlock()
	require.Len(t, env.ann.nowPlaying, 1)
	assert.Equal(t, "p1", env.ann.nowPlaying[0])
}

func TestActiveVideoMemoizesPlaylistEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.playlistItem("p1", "p2"), false)
	require.NoError(t, err)
	require.Equal(t, 1, env.source.callCount("p1"))

	// Repeated lookups reuse the resolved video.
	for i := 0; i < 3; i++ {
		video, err := env.session.Queue().ActiveVideo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "p1", video.VideoDetails.VideoID)
	}
	assert.Equal(t, 1, env.source.callCount("p1"))

	// Advancing the playlist invalidates the memo.
	_, err = env.session.Queue().Step(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, env.source.callCount("p2"))

	video, err := env.session.Queue().ActiveVideo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", video.VideoDetails.VideoID)
	assert.Equal(t, 1, env.source.callCount("p2"))
}

func TestRemoveKeepsCursorOnSameItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidC"), false)
	require.NoError(t, err)

	items := env.session.Queue().Items(false)
	require.Len(t, items, 3)

	assert.True(t, env.session.Queue().Remove(items[1].ID()))

	remaining := env.session.Queue().Items(false)
	require.Len(t, remaining, 2)
	assert.Equal(t, "vidA", remaining[0].Video().VideoDetails.VideoID)
	assert.Equal(t, "vidC", remaining[1].Video().VideoDetails.VideoID)

	// The active track is untouched and the deleted slot is skipped over.
	video, err := env.session.Queue().Step(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, "vidC", video.VideoDetails.VideoID)
}

func TestRemoveRejectsActiveAndUnknownItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)

	items := env.session.Queue().Items(false)
	require.Len(t, items, 1)

	assert.False(t, env.session.Queue().Remove(items[0].ID()), "active item must not be removable")

	other := env.videoItem("vidZ")
	assert.False(t, env.session.Queue().Remove(other.ID()), "unknown item must not be removable")
}

func TestClearEmptiesQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)

	env.session.Queue().Clear()
	assert.Empty(t, env.session.Queue().Items(false))
	assert.Equal(t, 0, env.session.Queue().Position())
	assert.Nil(t, env.session.Queue().ActiveItem())
}

func TestRestoreRecoversPersistedQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.playlistItem("p1", "p2"), false)
	require.NoError(t, err)

	// Simulate a process restart: the session goes away, the snapshot stays.
	require.True(t, env.manager.Destroy(env.session))

	session, err := env.manager.Create("guild-1", "text-1", UserRef{ID: "user-1"})
	require.NoError(t, err)
	session.SetActiveVoiceChannel("voice-1")

	restored, err := session.Queue().Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored)

	items := session.Queue().Items(false)
	require.Len(t, items, 2)
	assert.Equal(t, KindVideo, items[0].Kind())
	assert.Equal(t, KindPlaylist, items[1].Kind())
	assert.Equal(t, []string{"p1", "p2"}, items[1].Playlist().VideoList)

	// Playback resumes from the restored cursor.
	played := env.engine.playedIDs()
	require.NotEmpty(t, played)
	assert.Equal(t, "vidA", played[len(played)-1])
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t)

	restored, err := env.session.Queue().Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestDurationSumsUndeletedVideos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.session.Queue().Push(ctx, env.videoItem("vidA"), false)
	require.NoError(t, err)
	_, err = env.session.Queue().Push(ctx, env.videoItem("vidB"), false)
	require.NoError(t, err)

	assert.Equal(t, "6m0s", env.session.Queue().Duration().String())
}
