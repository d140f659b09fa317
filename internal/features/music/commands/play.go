package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/groovebot/internal/features/shared"
	"github.com/hxnx/groovebot/internal/music"
	"github.com/hxnx/groovebot/internal/youtube"
)

const playResolveTimeout = 30 * time.Second

func Play(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return
	}

	query := strings.TrimSpace(shared.GetOptionString(options, "검색어"))
	if query == "" {
		shared.RespondEphemeral(s, i, "노래 제목이나 URL을 입력해 주세요.")
		return
	}
	playNow := shared.GetOptionBool(options, "바로재생")

	if err := shared.DeferEphemeral(s, i); err != nil {
		deps.Log.Warn().Err(err).Msg("play defer failed")
		return
	}

	session, err := ensureSession(s, i)
	if err != nil {
		shared.FollowupEphemeral(s, i, "먼저 음성 채널에 들어가 주세요.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playResolveTimeout)
	defer cancel()

	item, err := resolveQueueItem(ctx, i, query)
	if err != nil {
		deps.Log.Warn().Err(err).Str("query", query).Msg("failed to resolve play input")
		shared.FollowupEphemeral(s, i, "노래를 찾지 못했습니다. 다른 검색어로 시도해 주세요.")
		return
	}

	started, err := session.Queue().Push(ctx, item, playNow)
	if err != nil {
		switch {
		case errors.Is(err, music.ErrNoActiveVoiceChannel):
			shared.FollowupEphemeral(s, i, "먼저 음성 채널에 들어가 주세요.")
		case errors.Is(err, music.ErrAlreadyJoining):
			shared.FollowupEphemeral(s, i, "음성 채널에 접속하는 중입니다. 잠시 후 다시 시도해 주세요.")
		case errors.Is(err, music.ErrJoinTimeout):
			shared.FollowupEphemeral(s, i, "음성 채널 접속에 실패했습니다. 다시 시도해 주세요.")
		default:
			deps.Log.Error().Err(err).Msg("queue push failed")
			shared.FollowupEphemeral(s, i, "노래를 추가하지 못했습니다.")
		}
		return
	}

	if started {
		shared.FollowupEphemeral(s, i, fmt.Sprintf("바로 재생합니다: **%s**", item.Title()))
		return
	}
	shared.FollowupEphemeral(s, i, fmt.Sprintf("대기열에 추가했습니다: **%s**", item.Title()))
}

// resolveQueueItem turns user input into a queue item: playlist urls become
// playlist items, everything else resolves to a single video.
func resolveQueueItem(ctx context.Context, i *discordgo.InteractionCreate, query string) (*music.QueuedItem, error) {
	user := interactionUserRef(i)

	if playlistID, err := youtube.PlaylistIDFromURL(query); err == nil {
		details, videoIDs, err := deps.Source.Playlist(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		return music.NewPlaylistItem(user, playlistID, videoIDs, details), nil
	}

	videoID, err := deps.Source.VideoIDFromQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	details, err := deps.Source.VideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return music.NewVideoItem(user, details), nil
}
