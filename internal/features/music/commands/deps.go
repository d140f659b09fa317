package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/database"
	"github.com/hxnx/groovebot/internal/music"
	"github.com/hxnx/groovebot/internal/youtube"
)

// Deps is the wiring the music commands need; set once by the bot before
// handlers are attached.
type Deps struct {
	Manager *music.Manager
	Source  *youtube.Source
	Guilds  *database.GuildRepository
	Log     zerolog.Logger
}

var deps Deps

func Configure(d Deps) {
	deps = d
}

// findVoiceChannel returns the voice channel the member currently sits in,
// or empty when they are not in one.
func findVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	if s.State != nil {
		if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs != nil {
			return vs.ChannelID
		}
	}

	guild, err := s.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

func interactionUserRef(i *discordgo.InteractionCreate) music.UserRef {
	var user *discordgo.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	} else if i.User != nil {
		user = i.User
	}
	if user == nil {
		return music.UserRef{}
	}
	return music.UserRef{
		ID:        user.ID,
		Name:      user.Username,
		AvatarURL: user.AvatarURL("128"),
	}
}

// ensureSession returns the guild's session, creating one bound to the
// invoker's voice channel when none exists. The invoker must be in a voice
// channel either way; the session's target channel follows them.
func ensureSession(s *discordgo.Session, i *discordgo.InteractionCreate) (*music.Session, error) {
	channelID := findVoiceChannel(s, i.GuildID, interactionUserRef(i).ID)
	if channelID == "" {
		return nil, music.ErrNoActiveVoiceChannel
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		var err error
		session, err = deps.Manager.Create(i.GuildID, i.ChannelID, interactionUserRef(i))
		if err != nil {
			session = deps.Manager.Get(i.GuildID)
			if session == nil {
				return nil, err
			}
		}
	}

	session.SetActiveVoiceChannel(channelID)
	session.SetInteractionChannel(i.ChannelID)
	session.CancelTerminationCountdown()
	return session, nil
}
