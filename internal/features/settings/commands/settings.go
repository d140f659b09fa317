package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/database"
	shared "github.com/hxnx/groovebot/internal/features/shared"
)

type Deps struct {
	Guilds *database.GuildRepository
	Log    zerolog.Logger
}

var deps Deps

func Configure(d Deps) {
	deps = d
}

// SetAnnounceChannel pins now-playing announcements to a fixed channel
// instead of the channel the command was used in.
func SetAnnounceChannel(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	channelID := ""
	for _, opt := range options {
		if opt.Name == "채널" && opt.Type == discordgo.ApplicationCommandOptionChannel {
			channelID = opt.ChannelValue(nil).ID
		}
	}

	if err := deps.Guilds.SetAnnounceChannel(i.GuildID, channelID); err != nil {
		deps.Log.Error().Err(err).Str("guild_id", i.GuildID).Msg("failed to save announce channel")
		shared.RespondEphemeral(s, i, "설정 저장에 실패했습니다.")
		return
	}

	if channelID == "" {
		shared.RespondEphemeral(s, i, "알림 채널 설정을 해제했습니다.")
		return
	}
	shared.RespondEphemeral(s, i, fmt.Sprintf("알림 채널을 <#%s>로 설정했습니다.", channelID))
}

func SetLoopDisabled(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	disabled := shared.GetOptionBool(options, "비활성화")
	if err := deps.Guilds.SetLoopDisabled(i.GuildID, disabled); err != nil {
		deps.Log.Error().Err(err).Str("guild_id", i.GuildID).Msg("failed to save loop setting")
		shared.RespondEphemeral(s, i, "설정 저장에 실패했습니다.")
		return
	}

	if disabled {
		shared.RespondEphemeral(s, i, "이 서버에서 반복 재생을 비활성화했습니다.")
		return
	}
	shared.RespondEphemeral(s, i, "이 서버에서 반복 재생을 다시 활성화했습니다.")
}
