package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	queueview "github.com/hxnx/groovebot/internal/features/music/queueview"
	shared "github.com/hxnx/groovebot/internal/features/shared"
)

func QueueList(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "재생 중인 세션이 없습니다.")
		return
	}

	perPage := int(shared.GetOptionInt64(options, "표시수"))
	if perPage <= 0 {
		perPage = queueview.DefaultPerPage
	}

	items := session.Queue().Items(false)
	if len(items) == 0 {
		shared.RespondEphemeral(s, i, "대기열이 비어 있습니다.")
		return
	}

	position := session.Queue().Position()
	page := position/perPage + 1
	components, _ := queueview.BuildQueueComponents(items, position, page, perPage)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Components: components,
			Flags:      discordgo.MessageFlagsIsComponentsV2 | discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		deps.Log.Warn().Err(err).Msg("queue respond failed")
	}
}

func QueueRemove(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "재생 중인 세션이 없습니다.")
		return
	}

	index := int(shared.GetOptionInt64(options, "번호"))
	items := session.Queue().Items(false)
	if index < 1 || index > len(items) {
		shared.RespondEphemeral(s, i, fmt.Sprintf("1부터 %d 사이의 번호를 입력해 주세요.", len(items)))
		return
	}

	target := items[index-1]
	if !session.Queue().Remove(target.ID()) {
		shared.RespondEphemeral(s, i, "재생 중인 곡은 삭제할 수 없습니다. 스킵을 사용해 주세요.")
		return
	}

	session.Touch(interactionUserRef(i).ID)
	shared.RespondEphemeral(s, i, fmt.Sprintf("대기열에서 삭제했습니다: **%s**", target.Title()))
}

func QueueClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		shared.RespondEphemeral(s, i, "재생 중인 세션이 없습니다.")
		return
	}

	if session.Engine() != nil {
		session.Engine().Stop()
	}
	session.Queue().Clear()
	session.Touch(interactionUserRef(i).ID)
	shared.RespondEphemeral(s, i, "대기열을 비웠습니다.")
}

// QueueRestore brings back the last persisted queue of this guild, picking up
// where a restarted or crashed process left off.
func QueueRestore(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	if err := shared.DeferEphemeral(s, i); err != nil {
		deps.Log.Warn().Err(err).Msg("restore defer failed")
		return
	}

	session, err := ensureSession(s, i)
	if err != nil {
		shared.FollowupEphemeral(s, i, "먼저 음성 채널에 들어가 주세요.")
		return
	}

	if !session.IsJoined() {
		if err := session.Join(context.Background()); err != nil {
			shared.FollowupEphemeral(s, i, "음성 채널에 들어가지 못했습니다.")
			return
		}
	}

	restored, err := session.Queue().Restore(context.Background())
	if err != nil {
		deps.Log.Error().Err(err).Msg("queue restore failed")
		shared.FollowupEphemeral(s, i, "대기열을 복원하는 중 오류가 발생했습니다.")
		return
	}
	if !restored {
		shared.FollowupEphemeral(s, i, "복원할 수 있는 대기열이 없습니다.")
		return
	}

	count := len(session.Queue().Items(false))
	shared.FollowupEphemeral(s, i, fmt.Sprintf("대기열을 복원했습니다. (%d개 항목)", count))
}
