package listeners

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/music"
)

// Deps is the wiring the voice listener needs; set once by the bot before
// handlers are attached.
type Deps struct {
	Manager          *music.Manager
	TerminationGrace time.Duration
	Log              zerolog.Logger
}

var deps Deps

func Configure(d Deps) {
	deps = d
}

// HandleVoiceStateUpdate tracks the bot's voice channel occupancy. The bot
// being removed destroys the session outright; the last listener leaving
// starts the termination countdown, and anyone coming back cancels it.
func HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" {
		return
	}

	session := deps.Manager.Get(vs.GuildID)
	if session == nil {
		return
	}

	// The bot itself was disconnected or kicked from the channel.
	if vs.UserID == botID && vs.ChannelID == "" {
		session.HandleVoiceDisconnect()
		if !deps.Manager.Destroy(session) {
			deps.Log.Warn().Str("guild_id", vs.GuildID).
				Msg("session was already removed on bot disconnect, risking leaked resources")
		}
		return
	}

	guild := getGuildWithVoiceStates(s, vs.GuildID)
	if guild == nil {
		return
	}

	botChannelID := ""
	for _, state := range guild.VoiceStates {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return
	}

	hasListener := false
	for _, state := range guild.VoiceStates {
		if state.ChannelID != botChannelID || state.UserID == botID {
			continue
		}
		hasListener = true
		break
	}

	if hasListener {
		session.CancelTerminationCountdown()
		return
	}
	session.SetTerminationCountdown(deps.TerminationGrace)
}

func getGuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}
