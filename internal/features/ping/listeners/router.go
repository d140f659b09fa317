package listeners

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/groovebot/internal/features/ping"
)

// RoutePingComponent redraws the status card when its refresh button is
// pressed. Reports whether the interaction was consumed.
func RoutePingComponent(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}
	if i.MessageComponentData().CustomID != ping.RefreshCustomID {
		return false
	}

	ping.RespondStatus(s, i, discordgo.InteractionResponseUpdateMessage)
	return true
}
