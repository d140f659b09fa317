package commands

import (
	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
)

func Stop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "정지할 재생이 없습니다.")
		return
	}

	if !deps.Manager.Destroy(session) {
		shared.RespondEphemeral(s, i, "세션이 이미 종료되었습니다.")
		return
	}

	shared.RespondEphemeral(s, i, "재생을 정지하고 음성 채널에서 나갑니다.")
}
