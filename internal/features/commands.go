package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/config"
	"github.com/hxnx/groovebot/internal/database"
	musiccmd "github.com/hxnx/groovebot/internal/features/music/commands"
	musiclisteners "github.com/hxnx/groovebot/internal/features/music/listeners"
	"github.com/hxnx/groovebot/internal/features/ping"
	pingcmd "github.com/hxnx/groovebot/internal/features/ping/commands"
	pinglisteners "github.com/hxnx/groovebot/internal/features/ping/listeners"
	settingscmd "github.com/hxnx/groovebot/internal/features/settings/commands"
	shared "github.com/hxnx/groovebot/internal/features/shared"
	"github.com/hxnx/groovebot/internal/music"
	"github.com/hxnx/groovebot/internal/youtube"
)

const lastCommandsFile = "last-commands.json"

var logger = zerolog.Nop()

var manageGuildPermission = int64(discordgo.PermissionManageServer)

var CommandList = []*discordgo.ApplicationCommand{
	{
		Name:        "핑",
		Description: "봇 상태를 확인합니다",
	},
	{
		Name:        "노래",
		Description: "노래 재생/관리 명령어",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "재생",
				Description: "노래나 재생목록을 대기열에 추가합니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "검색어",
						Description: "노래 제목 또는 유튜브 URL",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "바로재생",
						Description: "대기열을 건너뛰고 바로 재생합니다",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "참가",
				Description: "봇을 음성 채널에 참가시킵니다",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "스킵",
				Description: "현재 곡을 건너뜁니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "재생목록",
						Description: "재생목록 전체를 건너뜁니다",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "정지",
				Description: "재생을 중지하고 음성 채널에서 나갑니다",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "반복",
				Description: "현재 곡 반복을 켜거나 끕니다",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "일시정지",
				Description: "재생을 일시정지합니다",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "재개",
				Description: "일시정지한 재생을 다시 시작합니다",
			},
		},
	},
	{
		Name:        "대기열",
		Description: "대기열 관리 명령어",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "목록",
				Description: "현재 대기열을 표시합니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "표시수",
						Description: "페이지당 표시할 곡 수",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "삭제",
				Description: "대기열에서 항목을 삭제합니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "번호",
						Description: "삭제할 항목의 번호",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "비우기",
				Description: "대기열을 모두 비웁니다",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "복원",
				Description: "마지막으로 저장된 대기열을 복원합니다",
			},
		},
	},
	{
		Name:                     "설정",
		Description:              "서버별 봇 설정",
		DefaultMemberPermissions: &manageGuildPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "알림채널",
				Description: "재생 알림을 보낼 채널을 설정합니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionChannel,
						Name:         "채널",
						Description:  "알림을 보낼 텍스트 채널 (비우면 해제)",
						Required:     false,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "반복금지",
				Description: "반복 재생 기능을 비활성화합니다",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "비활성화",
						Description: "반복 재생 비활성화 여부",
						Required:    true,
					},
				},
			},
		},
	},
}

var commandHandlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
	"핑":   pingcmd.Ping,
	"노래":  handleMusicGroupCommand,
	"대기열": handleQueueGroupCommand,
	"설정":  handleSettingsGroupCommand,
}

// Deps carries everything the command handlers need; built by the bot during
// startup and fanned out to the feature packages.
type Deps struct {
	Config  *config.Config
	Manager *music.Manager
	Source  *youtube.Source
	Guilds  *database.GuildRepository
	Log     zerolog.Logger
}

func Setup(d Deps) {
	grace := d.Config.TerminationGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}

	logger = d.Log.With().Str("component", "commands").Logger()
	shared.SetLogger(d.Log)
	ping.Configure(d.Log)

	musiccmd.Configure(musiccmd.Deps{
		Manager: d.Manager,
		Source:  d.Source,
		Guilds:  d.Guilds,
		Log:     d.Log,
	})
	musiclisteners.Configure(musiclisteners.Deps{
		Manager:          d.Manager,
		TerminationGrace: grace,
		Log:              d.Log,
	})
	settingscmd.Configure(settingscmd.Deps{
		Guilds: d.Guilds,
		Log:    d.Log,
	})
}

func handleMusicGroupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := getSubcommandOption(i.ApplicationCommandData())
	if sub == nil {
		shared.RespondEphemeral(s, i, "사용할 명령을 선택해 주세요.")
		return
	}

	switch sub.Name {
	case "재생":
		musiccmd.Play(s, i, sub.Options)
	case "참가":
		musiccmd.Join(s, i)
	case "스킵":
		musiccmd.Skip(s, i, sub.Options)
	case "정지":
		musiccmd.Stop(s, i)
	case "반복":
		musiccmd.Loop(s, i)
	case "일시정지":
		musiccmd.Pause(s, i)
	case "재개":
		musiccmd.Resume(s, i)
	default:
		shared.RespondEphemeral(s, i, "지원하지 않는 노래 명령입니다.")
	}
}

func handleQueueGroupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := getSubcommandOption(i.ApplicationCommandData())
	if sub == nil {
		shared.RespondEphemeral(s, i, "사용할 명령을 선택해 주세요.")
		return
	}

	switch sub.Name {
	case "목록":
		musiccmd.QueueList(s, i, sub.Options)
	case "삭제":
		musiccmd.QueueRemove(s, i, sub.Options)
	case "비우기":
		musiccmd.QueueClear(s, i)
	case "복원":
		musiccmd.QueueRestore(s, i)
	default:
		shared.RespondEphemeral(s, i, "지원하지 않는 대기열 명령입니다.")
	}
}

func handleSettingsGroupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := getSubcommandOption(i.ApplicationCommandData())
	if sub == nil {
		shared.RespondEphemeral(s, i, "사용할 명령을 선택해 주세요.")
		return
	}

	switch sub.Name {
	case "알림채널":
		settingscmd.SetAnnounceChannel(s, i, sub.Options)
	case "반복금지":
		settingscmd.SetLoopDisabled(s, i, sub.Options)
	default:
		shared.RespondEphemeral(s, i, "지원하지 않는 설정 명령입니다.")
	}
}

func getSubcommandOption(data discordgo.ApplicationCommandInteractionData) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			return opt
		}
	}
	return nil
}

// RegisterCommands bulk-overwrites the slash commands. When the serialized
// command table matches the one registered last time, the API call is
// skipped; the marker file is removed on failure so the next start retries.
func RegisterCommands(s *discordgo.Session, appID, guildID, dataDir string) ([]*discordgo.ApplicationCommand, error) {
	serialized, err := json.Marshal(CommandList)
	if err != nil {
		return nil, fmt.Errorf("cannot serialize commands: %w", err)
	}

	markerPath := filepath.Join(dataDir, lastCommandsFile)
	if prev, err := os.ReadFile(markerPath); err == nil && string(prev) == string(serialized) {
		logger.Info().Int("count", len(CommandList)).Msg("commands unchanged, skipping registration")
		return nil, nil
	}

	scope := "global"
	if guildID != "" {
		scope = fmt.Sprintf("guild:%s", guildID)
	}
	logger.Info().Int("count", len(CommandList)).Str("scope", scope).Msg("registering commands")

	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, CommandList)
	if err != nil {
		_ = os.Remove(markerPath)
		return nil, fmt.Errorf("cannot bulk overwrite commands: %w", err)
	}

	if err := os.WriteFile(markerPath, serialized, 0o644); err != nil {
		logger.Warn().Err(err).Str("file", lastCommandsFile).Msg("failed to write registration marker")
	}
	return cmds, nil
}

func AddHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		musiclisteners.HandleVoiceStateUpdate(s, vs)
	})

	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			data := i.ApplicationCommandData()
			if handler, ok := commandHandlers[data.Name]; ok {
				handler(s, i)
			}
		case discordgo.InteractionMessageComponent:
			if pinglisteners.RoutePingComponent(s, i) {
				return
			}
			if musiclisteners.RouteMusicComponent(s, i) {
				return
			}
		default:
			return
		}
	})
}
