package music

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrSessionExists = errors.New("a session is already active for this guild")

type ManagerConfig struct {
	Dialer    VoiceDialer
	Announcer Announcer
	Source    VideoSource
	Snapshots *SnapshotStore
	NewEngine EngineFactory

	JoinTimeout time.Duration
	Logger      zerolog.Logger
}

// Manager is the one-session-per-guild registry. Create and Destroy are
// atomic with respect to Get: a concurrent lookup never observes a guild
// with two sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      ManagerConfig
	log      zerolog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "session_manager").Logger(),
	}
}

// Create builds and registers a session for a guild. Fails with
// ErrSessionExists when one is already live; callers check-then-create or
// handle the failure.
func (m *Manager) Create(guildID, interactionChannelID string, createdBy UserRef) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[guildID]; ok {
		return nil, ErrSessionExists
	}

	s := NewSession(SessionConfig{
		GuildID:              guildID,
		InteractionChannelID: interactionChannelID,
		CreatedBy:            createdBy,
		Dialer:               m.cfg.Dialer,
		Announcer:            m.cfg.Announcer,
		Source:               m.cfg.Source,
		Snapshots:            m.cfg.Snapshots,
		JoinTimeout:          m.cfg.JoinTimeout,
		Logger:               m.cfg.Logger,
	})
	s.destroyFn = m.Destroy
	if m.cfg.NewEngine != nil {
		s.engine = m.cfg.NewEngine(guildID, EngineEvents{
			TrackEnd: s.HandleTrackEnd,
			Error:    s.HandlePlaybackError,
		})
	}

	m.sessions[guildID] = s
	m.log.Info().Str("guild_id", guildID).Str("user_id", createdBy.ID).Msg("session created")
	return s, nil
}

// Get returns the live session for a guild, or nil.
func (m *Manager) Get(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

// Sessions returns a snapshot of all live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Destroy stops playback, tears down the voice connection and removes the
// session from the registry. Returns false when the session was already
// gone; callers treat that as a potential resource leak worth reporting.
func (m *Manager) Destroy(s *Session) bool {
	if s == nil {
		return false
	}

	m.mu.Lock()
	current, ok := m.sessions[s.GuildID]
	if !ok || current != s {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, s.GuildID)
	m.mu.Unlock()

	s.shutdown()
	m.log.Info().Str("guild_id", s.GuildID).Msg("session destroyed")
	return true
}

// Shutdown destroys every live session; used during process teardown.
func (m *Manager) Shutdown() {
	for _, s := range m.Sessions() {
		m.Destroy(s)
	}
}
