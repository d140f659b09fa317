package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/groovebot/internal/music"
)

// voiceConn adapts discordgo's voice connection to the playback layer.
type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c *voiceConn) OpusSend() chan<- []byte {
	return c.vc.OpusSend
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}

// voiceDialer joins guild voice channels through the gateway session. The
// join itself blocks inside discordgo; the context bounds how long we wait.
type voiceDialer struct {
	session *discordgo.Session
}

func (d *voiceDialer) Dial(ctx context.Context, guildID, channelID string) (music.VoiceConn, error) {
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan joinResult, 1)

	go func() {
		vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &voiceConn{vc: r.vc}, nil
	case <-ctx.Done():
		// The join may still complete; drop the connection when it does.
		go func() {
			if r := <-done; r.err == nil && r.vc != nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}
