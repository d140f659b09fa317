package ping

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// RefreshCustomID identifies the refresh button on the status card.
const RefreshCustomID = "ping_refresh"

var (
	accentColor = 0xC9A0FF
	logger      = zerolog.Nop()
)

func Configure(l zerolog.Logger) {
	logger = l.With().Str("component", "ping").Logger()
}

// StatusComponents renders the gateway health card.
func StatusComponents(s *discordgo.Session) []discordgo.MessageComponent {
	apiLatency := s.HeartbeatLatency().Round(time.Millisecond)
	gatewayLatency := apiLatency
	if !s.LastHeartbeatAck.IsZero() {
		gatewayLatency = time.Since(s.LastHeartbeatAck).Round(time.Millisecond)
	}

	guilds := 0
	if s.State != nil {
		guilds = len(s.State.Guilds)
	}

	divider := true
	spacing := discordgo.SeparatorSpacingSizeSmall

	return []discordgo.MessageComponent{
		discordgo.Container{
			AccentColor: &accentColor,
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: "**퐁!**"},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.Section{
					Components: []discordgo.MessageComponent{
						discordgo.TextDisplay{Content: fmt.Sprintf("**API 지연:** %s", apiLatency)},
						discordgo.TextDisplay{Content: fmt.Sprintf("**게이트웨이 지연:** %s", gatewayLatency)},
						discordgo.TextDisplay{Content: fmt.Sprintf("**서버 수:** %d", guilds)},
					},
					Accessory: discordgo.Button{
						Style:    discordgo.PrimaryButton,
						Label:    "새로고침",
						CustomID: RefreshCustomID,
					},
				},
				discordgo.TextDisplay{Content: fmt.Sprintf("갱신됨 <t:%d:R>", time.Now().Unix())},
			},
		},
	}
}

// RespondStatus sends or updates the status card on an interaction.
func RespondStatus(s *discordgo.Session, i *discordgo.InteractionCreate, respType discordgo.InteractionResponseType) {
	if s == nil || i == nil {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: respType,
		Data: &discordgo.InteractionResponseData{
			Components: StatusComponents(s),
			Flags:      discordgo.MessageFlagsIsComponentsV2 | discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to respond with status card")
	}
}
