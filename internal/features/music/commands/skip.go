package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
	"github.com/hxnx/groovebot/internal/music"
)

func Skip(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "재생 중인 세션이 없습니다.")
		return
	}

	// Skipping the whole playlist jumps past its remaining entries.
	skipPlaylist := shared.GetOptionBool(options, "재생목록")

	if err := shared.DeferEphemeral(s, i); err != nil {
		deps.Log.Warn().Err(err).Msg("skip defer failed")
		return
	}
	session.Touch(interactionUserRef(i).ID)

	video, err := session.Queue().Step(context.Background(), skipPlaylist, false)
	if err != nil {
		if errors.Is(err, music.ErrQueueExhausted) {
			if session.Engine() != nil {
				session.Engine().Stop()
			}
			shared.FollowupEphemeral(s, i, "대기열의 마지막 곡이었습니다. 재생을 멈춥니다.")
			return
		}
		deps.Log.Error().Err(err).Msg("skip failed")
		shared.FollowupEphemeral(s, i, "스킵하지 못했습니다.")
		return
	}

	shared.FollowupEphemeral(s, i, fmt.Sprintf("다음 곡으로 넘어갑니다: **%s**", video.VideoDetails.Title))
}
