package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
	"github.com/hxnx/groovebot/internal/music"
)

func Join(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	if err := shared.DeferEphemeral(s, i); err != nil {
		deps.Log.Warn().Err(err).Msg("join defer failed")
		return
	}

	session, err := ensureSession(s, i)
	if err != nil {
		shared.FollowupEphemeral(s, i, "먼저 음성 채널에 들어가 주세요.")
		return
	}

	if err := session.Join(context.Background()); err != nil {
		switch {
		case errors.Is(err, music.ErrAlreadyJoining):
			shared.FollowupEphemeral(s, i, "이미 음성 채널에 접속하는 중입니다.")
		case errors.Is(err, music.ErrJoinTimeout):
			shared.FollowupEphemeral(s, i, "음성 채널 접속에 실패했습니다. 다시 시도해 주세요.")
		default:
			deps.Log.Error().Err(err).Msg("voice join failed")
			shared.FollowupEphemeral(s, i, "음성 채널에 들어가지 못했습니다.")
		}
		return
	}

	shared.FollowupEphemeral(s, i, "음성 채널에 들어왔습니다.")
}
