package listeners

import (
	"github.com/bwmarrin/discordgo"

	queueview "github.com/hxnx/groovebot/internal/features/music/queueview"
)

// RouteMusicComponent handles queue pagination buttons. Reports whether the
// interaction was consumed.
func RouteMusicComponent(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}

	page, perPage, ok := queueview.ParseQueuePageCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return false
	}

	session := deps.Manager.Get(i.GuildID)
	if session == nil {
		respondUpdateText(s, i, "재생 중인 세션이 없습니다.")
		return true
	}

	items := session.Queue().Items(false)
	position := session.Queue().Position()
	components, _ := queueview.BuildQueueComponents(items, position, page, perPage)

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: components,
			Flags:      discordgo.MessageFlagsIsComponentsV2,
		},
	}); err != nil {
		deps.Log.Warn().Err(err).Msg("queue page update failed")
	}
	return true
}

func respondUpdateText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: content},
			},
			Flags: discordgo.MessageFlagsIsComponentsV2,
		},
	})
	if err != nil {
		deps.Log.Warn().Err(err).Msg("component update failed")
	}
}
