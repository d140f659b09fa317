package commands

import (
	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
)

func Loop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "재생 중인 세션이 없습니다.")
		return
	}

	if !session.IsLooping() {
		settings, err := deps.Guilds.GetSettings(i.GuildID)
		if err != nil {
			deps.Log.Warn().Err(err).Str("guild_id", i.GuildID).Msg("failed to load guild settings")
		}
		if settings.LoopDisabled {
			shared.RespondEphemeral(s, i, "이 서버에서는 반복 재생이 비활성화되어 있습니다.")
			return
		}
	}

	session.Touch(interactionUserRef(i).ID)
	looping := !session.IsLooping()
	session.SetLooping(looping)

	if looping {
		shared.RespondEphemeral(s, i, "현재 곡을 반복 재생합니다.")
		return
	}
	shared.RespondEphemeral(s, i, "반복 재생을 해제했습니다.")
}
