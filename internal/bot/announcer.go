package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/database"
	"github.com/hxnx/groovebot/internal/music"
)

const announceAccentColor = 0xC9A0FF

// announcer posts playback notices to text channels. A guild-level announce
// channel setting overrides the fallback channel; delivery failures are
// logged and swallowed.
type announcer struct {
	session *discordgo.Session
	guilds  *database.GuildRepository
	log     zerolog.Logger
}

func newAnnouncer(session *discordgo.Session, guilds *database.GuildRepository, logger zerolog.Logger) *announcer {
	return &announcer{
		session: session,
		guilds:  guilds,
		log:     logger.With().Str("component", "announcer").Logger(),
	}
}

func (a *announcer) targetChannel(guildID, fallback string) string {
	settings, err := a.guilds.GetSettings(guildID)
	if err != nil {
		a.log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to load announce channel setting")
		return fallback
	}
	if settings.AnnounceChannelID != "" {
		return settings.AnnounceChannelID
	}
	return fallback
}

func (a *announcer) NowPlaying(guildID, channelID string, video *music.QueuedVideo, from *music.QueuedPlaylist) {
	target := a.targetChannel(guildID, channelID)
	if target == "" || video == nil {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: video.VideoDetails.Title,
		URL:   "https://www.youtube.com/watch?v=" + video.VideoDetails.VideoID,
		Color: announceAccentColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name: "🎶 지금 재생 중",
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: video.VideoDetails.Thumbnail,
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "길이",
				Value:  formatLength(video.VideoDetails.Length),
				Inline: true,
			},
			{
				Name:   "채널",
				Value:  orUnknown(video.VideoDetails.Author.Name),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("%s님이 추가함", video.User.Name),
			IconURL: video.User.AvatarURL,
		},
	}

	if from != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "재생목록",
			Value: fmt.Sprintf("%s (%d/%d)",
				orUnknown(from.PlaylistDetails.Title), from.Position+1, len(from.VideoList)),
		})
	}

	if _, err := a.session.ChannelMessageSendEmbed(target, embed); err != nil {
		a.log.Warn().Err(err).Str("channel_id", target).Msg("failed to send now-playing notice")
	}
}

func (a *announcer) Notice(guildID, channelID string, message string) {
	target := a.targetChannel(guildID, channelID)
	if target == "" || message == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       announceAccentColor,
	}
	if _, err := a.session.ChannelMessageSendEmbed(target, embed); err != nil {
		a.log.Warn().Err(err).Str("channel_id", target).Msg("failed to send notice")
	}
}

func formatLength(seconds int) string {
	if seconds <= 0 {
		return "라이브"
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func orUnknown(value string) string {
	if value == "" {
		return "알 수 없음"
	}
	return value
}
