package music

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoActiveVoiceChannel = errors.New("no active voice channel set")
	ErrAlreadyJoining       = errors.New("session is already joining a voice channel")
	ErrJoinTimeout          = errors.New("timed out waiting for voice connection")
	ErrNotConnected         = errors.New("voice connection not established")
)

// ConnState is the voice-connection state of a session. A session is either
// fully disconnected, waiting for the transport to become ready, or joined.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateJoining
	StateJoined
)

func (s ConnState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// VoiceConn is an established voice-channel connection.
type VoiceConn interface {
	Speaking(speaking bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

// VoiceDialer opens voice connections; it blocks until the transport reports
// ready or the context expires.
type VoiceDialer interface {
	Dial(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// Announcer delivers user-visible notices to a text channel. Implementations
// must swallow delivery failures; announcements are never load-bearing. The
// channel is a fallback; implementations may redirect per guild settings.
type Announcer interface {
	NowPlaying(guildID, channelID string, video *QueuedVideo, from *QueuedPlaylist)
	Notice(guildID, channelID string, message string)
}

// Engine plays resolved videos over an attached voice connection.
type Engine interface {
	Attach(conn VoiceConn)
	Play(ctx context.Context, video *QueuedVideo) error
	Stop()
	SetPaused(paused bool) bool
	IsPlaying() bool
	Close()
}

// EngineEvents are the callbacks an engine fires from its playback goroutine.
type EngineEvents struct {
	TrackEnd func()
	Error    func(err error)
}

type EngineFactory func(guildID string, events EngineEvents) Engine

type SessionConfig struct {
	GuildID              string
	InteractionChannelID string
	CreatedBy            UserRef

	Dialer    VoiceDialer
	Announcer Announcer
	Source    VideoSource
	Snapshots *SnapshotStore

	JoinTimeout time.Duration
	Logger      zerolog.Logger
}

// Session is the per-guild aggregate of voice connection, queue and playback
// state. At most one session exists per guild; the Manager enforces that.
type Session struct {
	ID        uuid.UUID
	GuildID   string
	CreatedAt time.Time
	CreatedBy string

	mu                   sync.Mutex
	state                ConnState
	conn                 VoiceConn
	voiceChannelID       string
	interactionChannelID string
	looping              bool
	paused               bool
	termTimer            *time.Timer
	updatedAt            time.Time
	updatedBy            string

	queue       *Queue
	engine      Engine
	dialer      VoiceDialer
	announcer   Announcer
	joinTimeout time.Duration
	log         zerolog.Logger

	// destroyFn asks the owning manager to tear this session down. Set by
	// the manager right after construction.
	destroyFn func(*Session) bool
}

func NewSession(cfg SessionConfig) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:                   uuid.New(),
		GuildID:              cfg.GuildID,
		CreatedAt:            now,
		CreatedBy:            cfg.CreatedBy.ID,
		updatedAt:            now,
		updatedBy:            cfg.CreatedBy.ID,
		interactionChannelID: cfg.InteractionChannelID,
		dialer:               cfg.Dialer,
		announcer:            cfg.Announcer,
		joinTimeout:          cfg.JoinTimeout,
		log:                  cfg.Logger.With().Str("guild_id", cfg.GuildID).Logger(),
	}
	if s.joinTimeout <= 0 {
		s.joinTimeout = 10 * time.Second
	}
	s.queue = newQueue(s, cfg.Source, cfg.Snapshots, s.log)
	return s
}

func (s *Session) Queue() *Queue { return s.queue }

func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsJoined() bool {
	return s.State() == StateJoined
}

func (s *Session) SetActiveVoiceChannel(channelID string) {
	s.mu.Lock()
	s.voiceChannelID = channelID
	s.mu.Unlock()
}

func (s *Session) VoiceChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceChannelID
}

func (s *Session) SetInteractionChannel(channelID string) {
	if channelID == "" {
		return
	}
	s.mu.Lock()
	s.interactionChannelID = channelID
	s.mu.Unlock()
}

func (s *Session) InteractionChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interactionChannelID
}

func (s *Session) Touch(userID string) {
	s.mu.Lock()
	s.updatedAt = time.Now().UTC()
	s.updatedBy = userID
	s.mu.Unlock()
}

// Join connects to the active voice channel. A second call while a join is
// in flight fails with ErrAlreadyJoining instead of racing the transport; a
// call while already joined tears the old connection down first. The wait
// for transport readiness is bounded by the configured join timeout.
func (s *Session) Join(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateJoining {
		s.mu.Unlock()
		return ErrAlreadyJoining
	}
	if s.voiceChannelID == "" {
		s.mu.Unlock()
		return ErrNoActiveVoiceChannel
	}
	channelID := s.voiceChannelID
	old := s.conn
	s.conn = nil
	s.state = StateJoining
	s.mu.Unlock()

	// Stale connection or player from a previous join must not survive.
	if s.engine != nil {
		s.engine.Stop()
	}
	if old != nil {
		_ = old.Disconnect()
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.joinTimeout)
	defer cancel()

	conn, err := s.dialer.Dial(dialCtx, s.GuildID, channelID)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrJoinTimeout
		}
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateJoined
	s.mu.Unlock()

	if s.engine != nil {
		s.engine.Attach(conn)
	}
	s.log.Info().Str("channel_id", channelID).Msg("joined voice channel")
	return nil
}

// Leave disconnects from voice. Fails if no connection is live.
func (s *Session) Leave() error {
	s.mu.Lock()
	if s.state != StateJoined || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if s.engine != nil {
		s.engine.Stop()
	}
	if err := conn.Disconnect(); err != nil {
		return err
	}
	s.log.Info().Msg("left voice channel")
	return nil
}

// HandleVoiceDisconnect marks the session disconnected after the transport
// reported the connection gone.
func (s *Session) HandleVoiceDisconnect() {
	s.mu.Lock()
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()
}

// SetTerminationCountdown schedules self-destruction after the grace period.
// A pending countdown is left untouched; the clock is not reset.
func (s *Session) SetTerminationCountdown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.termTimer != nil {
		return
	}
	s.termTimer = time.AfterFunc(d, s.expireTermination)
}

func (s *Session) CancelTerminationCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.termTimer == nil {
		return
	}
	s.termTimer.Stop()
	s.termTimer = nil
}

func (s *Session) expireTermination() {
	s.mu.Lock()
	s.termTimer = nil
	channelID := s.interactionChannelID
	s.mu.Unlock()

	s.log.Info().Msg("terminating session after inactivity grace period")
	if s.announcer != nil {
		s.announcer.Notice(s.GuildID, channelID, "장시간 아무도 없어 음성 채널에서 나갑니다.")
	}
	if s.destroyFn != nil {
		if !s.destroyFn(s) {
			s.log.Warn().Msg("session already removed when countdown fired")
		}
	}
}

func (s *Session) SetLooping(state bool) {
	s.mu.Lock()
	s.looping = state
	s.mu.Unlock()
}

func (s *Session) IsLooping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.looping
}

// SetPause delegates to the engine; returns false when no connection or
// engine is active.
func (s *Session) SetPause(state bool) bool {
	s.mu.Lock()
	connected := s.state == StateJoined && s.conn != nil
	s.mu.Unlock()
	if !connected || s.engine == nil {
		return false
	}
	if !s.engine.SetPaused(state) {
		return false
	}
	s.mu.Lock()
	s.paused = state
	s.mu.Unlock()
	return true
}

func (s *Session) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) Engine() Engine { return s.engine }

// HandleTrackEnd reacts to the engine finishing a track: replay when looping,
// otherwise advance the queue. Queue exhaustion leaves playback idle; the
// connection stays up until an explicit stop or the termination countdown.
func (s *Session) HandleTrackEnd() {
	ctx := context.Background()

	if s.IsLooping() {
		video, err := s.queue.ActiveVideo(ctx)
		if err != nil || video == nil {
			s.log.Error().Err(err).Msg("loop replay failed to resolve active video")
			return
		}
		if err := s.playVideo(ctx, video); err != nil {
			s.log.Error().Err(err).Msg("loop replay failed")
		}
		return
	}

	if _, err := s.queue.Step(ctx, false, true); err != nil {
		if errors.Is(err, ErrQueueExhausted) {
			s.log.Debug().Msg("queue exhausted, playback idle")
			return
		}
		s.log.Error().Err(err).Msg("failed to step queue after track end")
	}
}

// HandlePlaybackError is wired as the engine's error callback. Stream errors
// are reported to the interaction channel; the session stays alive so the
// user can retry or skip.
func (s *Session) HandlePlaybackError(err error) {
	s.log.Error().Err(err).Msg("playback stream error")
	if s.announcer != nil {
		s.announcer.Notice(s.GuildID, s.InteractionChannelID(), "재생 중 오류가 발생했습니다. 다시 시도하거나 스킵해 주세요.")
	}
}

func (s *Session) playVideo(ctx context.Context, video *QueuedVideo) error {
	if s.engine == nil {
		return ErrNotConnected
	}
	return s.engine.Play(ctx, video)
}

func (s *Session) announceVideo(video *QueuedVideo, from *QueuedPlaylist) {
	if s.announcer == nil {
		return
	}
	s.announcer.NowPlaying(s.GuildID, s.InteractionChannelID(), video, from)
}

// shutdown releases the session's transport resources. Called by the manager
// during destroy; not exported on purpose.
func (s *Session) shutdown() {
	s.CancelTerminationCountdown()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if s.engine != nil {
		s.engine.Stop()
		s.engine.Close()
	}
	if conn != nil {
		_ = conn.Disconnect()
	}
}
