package commands

import (
	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
)

func Pause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	setPaused(s, i, true, "재생을 일시정지했습니다.", "일시정지할 재생이 없습니다.")
}

func Resume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	setPaused(s, i, false, "재생을 다시 시작합니다.", "다시 시작할 재생이 없습니다.")
}

func setPaused(s *discordgo.Session, i *discordgo.InteractionCreate, paused bool, okMsg, failMsg string) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil || !session.SetPause(paused) {
		shared.RespondEphemeral(s, i, failMsg)
		return
	}

	session.Touch(interactionUserRef(i).ID)
	shared.RespondEphemeral(s, i, okMsg)
}
