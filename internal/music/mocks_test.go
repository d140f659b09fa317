package music

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu           sync.Mutex
	speaking     bool
	disconnected bool
	send         chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{send: make(chan []byte, 64)}
}

func (c *fakeConn) Speaking(speaking bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = speaking
	return nil
}

func (c *fakeConn) OpusSend() chan<- []byte {
	return c.send
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	delay time.Duration
	err   error
	calls int
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, guildID, channelID string) (VoiceConn, error) {
	d.mu.Lock()
	d.calls++
	delay, err := d.delay, d.err
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeEngine struct {
	mu       sync.Mutex
	playing  bool
	paused   bool
	closed   bool
	attached VoiceConn
	played   []string
	events   EngineEvents
}

func (e *fakeEngine) Attach(conn VoiceConn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = conn
}

func (e *fakeEngine) Play(ctx context.Context, video *QueuedVideo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.played = append(e.played, video.VideoDetails.VideoID)
	e.playing = true
	return nil
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *fakeEngine) SetPaused(paused bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing && paused {
		return false
	}
	e.paused = paused
	return true
}

func (e *fakeEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.playing = false
}

func (e *fakeEngine) playedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.played))
	copy(out, e.played)
	return out
}

// finishTrack simulates the stream reaching its natural end.
func (e *fakeEngine) finishTrack() {
	e.mu.Lock()
	e.playing = false
	onEnd := e.events.TrackEnd
	e.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

type fakeAnnouncer struct {
	mu         sync.Mutex
	nowPlaying []string
	notices    []string
}

func (a *fakeAnnouncer) NowPlaying(guildID, channelID string, video *QueuedVideo, from *QueuedPlaylist) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nowPlaying = append(a.nowPlaying, video.VideoDetails.VideoID)
}

func (a *fakeAnnouncer) Notice(guildID, channelID string, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notices = append(a.notices, message)
}

func (a *fakeAnnouncer) noticeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.notices)
}

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(map[string]int)}
}

func (f *fakeSource) VideoByID(ctx context.Context, videoID string) (VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[videoID]++
	return VideoMetadata{
		VideoID: videoID,
		Title:   "Track " + videoID,
		Length:  180,
	}, nil
}

func (f *fakeSource) callCount(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[videoID]
}

type testEnv struct {
	manager *Manager
	session *Session
	dialer  *fakeDialer
	engine  *fakeEngine
	ann     *fakeAnnouncer
	source  *fakeSource
	store   *SnapshotStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := NewSnapshotStore(t.TempDir(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	env := &testEnv{
		dialer: &fakeDialer{},
		engine: &fakeEngine{},
		ann:    &fakeAnnouncer{},
		source: newFakeSource(),
		store:  store,
	}
	env.manager = NewManager(ManagerConfig{
		Dialer:    env.dialer,
		Announcer: env.ann,
		Source:    env.source,
		Snapshots: store,
		NewEngine: func(guildID string, events EngineEvents) Engine {
			env.engine.events = events
			return env.engine
		},
		JoinTimeout: 500 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})

	env.session, err = env.manager.Create("guild-1", "text-1", UserRef{ID: "user-1", Name: "tester"})
	require.NoError(t, err)
	env.session.SetActiveVoiceChannel("voice-1")
	return env
}

func (env *testEnv) videoItem(id string) *QueuedItem {
	return NewVideoItem(UserRef{ID: "user-1", Name: "tester"}, VideoMetadata{
		VideoID: id,
		Title:   "Track " + id,
		Length:  180,
	})
}

func (env *testEnv) playlistItem(ids ...string) *QueuedItem {
	return NewPlaylistItem(UserRef{ID: "user-1", Name: "tester"}, "PLtest", ids, PlaylistMetadata{
		Title: fmt.Sprintf("Playlist (%d)", len(ids)),
	})
}
