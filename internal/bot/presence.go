package bot

import (
	"fmt"
	"time"
)

const presenceUpdateInterval = 60 * time.Second

func (b *Bot) startPresenceUpdater() {
	if b.presenceStop != nil {
		return
	}
	b.presenceStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(presenceUpdateInterval)
		defer ticker.Stop()

		b.updatePresence()
		for {
			select {
			case <-b.presenceStop:
				return
			case <-ticker.C:
				b.updatePresence()
			}
		}
	}()
}

func (b *Bot) stopPresenceUpdater() {
	if b.presenceStop == nil {
		return
	}
	close(b.presenceStop)
	b.presenceStop = nil
}

func (b *Bot) updatePresence() {
	guildCount := 0
	if b.session.State != nil {
		guildCount = len(b.session.State.Guilds)
	}

	playing := 0
	for _, s := range b.manager.Sessions() {
		if s.Engine() != nil && s.Engine().IsPlaying() {
			playing++
		}
	}

	status := fmt.Sprintf("%d개 서버 참가중", guildCount)
	if playing > 0 {
		status = fmt.Sprintf("%d개 서버에서 노래 재생중", playing)
	}
	if err := b.session.UpdateGameStatus(0, status); err != nil {
		b.log.Warn().Err(err).Msg("failed to update presence")
	}
}
