package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/groovebot/internal/features/ping"
)

// Ping replies with the gateway health card.
func Ping(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ping.RespondStatus(s, i, discordgo.InteractionResponseChannelMessageWithSource)
}
