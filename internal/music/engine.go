package music

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrVoiceNotConnected = errors.New("voice connection not attached")

const opusFrameInterval = 20 * time.Millisecond

// StreamSource yields a direct audio stream URL for an external video id.
type StreamSource interface {
	StreamURL(ctx context.Context, videoID string) (string, error)
}

// PlaybackEngine wraps the voice transport's audio path for one session:
// it resolves a stream URL, transcodes through ffmpeg to ogg/opus and feeds
// opus packets to the attached connection at frame rate.
type PlaybackEngine struct {
	guildID string
	source  StreamSource
	events  EngineEvents
	ffmpeg  string
	log     zerolog.Logger

	mu      sync.Mutex
	conn    VoiceConn
	current *playback
	paused  bool
}

// playback tracks one stream from the moment its slot is claimed so a later
// Play or Stop can supersede it without racing its goroutine. The ffmpeg
// cancel function arrives only once the subprocess exists; halting first
// cancels it on arrival.
type playback struct {
	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newPlayback() *playback {
	return &playback{stop: make(chan struct{})}
}

func (p *playback) setCancel(cancel context.CancelFunc) {
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	if p.halted() {
		cancel()
	}
}

func (p *playback) halt() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

func (p *playback) halted() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func NewPlaybackEngine(guildID string, source StreamSource, events EngineEvents, logger zerolog.Logger) *PlaybackEngine {
	return &PlaybackEngine{
		guildID: guildID,
		source:  source,
		events:  events,
		ffmpeg:  "ffmpeg",
		log:     logger.With().Str("component", "playback").Str("guild_id", guildID).Logger(),
	}
}

func (e *PlaybackEngine) Attach(conn VoiceConn) {
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()
}

func (e *PlaybackEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Play starts streaming a video, superseding any stream already running.
// The slot is claimed before the stream URL resolves, so an overlapping
// Play always supersedes the earlier one instead of racing it. Returns nil
// when superseded or stopped mid-setup. Fails when no voice connection is
// attached.
func (e *PlaybackEngine) Play(ctx context.Context, video *QueuedVideo) error {
	p := newPlayback()

	e.mu.Lock()
	conn := e.conn
	if conn == nil {
		e.mu.Unlock()
		return ErrVoiceNotConnected
	}
	if e.current != nil {
		e.current.halt()
	}
	e.current = p
	e.paused = false
	e.mu.Unlock()

	streamURL, err := e.source.StreamURL(ctx, video.VideoDetails.VideoID)
	if err != nil {
		e.release(p)
		if p.halted() {
			return nil
		}
		return err
	}
	if p.halted() {
		e.release(p)
		return nil
	}

	ffmpegCtx, cancel := context.WithCancel(context.Background())
	p.setCancel(cancel)

	cmd := exec.CommandContext(ffmpegCtx, e.ffmpeg,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-vn",
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.halt()
		e.release(p)
		return fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		p.halt()
		e.release(p)
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	e.log.Debug().Str("video_id", video.VideoDetails.VideoID).Msg("stream started")
	go e.run(p, cmd, stdout, &stderr, conn)
	return nil
}

// release clears the slot if this playback still owns it.
func (e *PlaybackEngine) release(p *playback) {
	e.mu.Lock()
	if e.current == p {
		e.current = nil
	}
	e.mu.Unlock()
}

// run drives one stream to completion and dispatches the end-of-track or
// error event. Superseded or stopped streams dispatch neither.
func (e *PlaybackEngine) run(p *playback, cmd *exec.Cmd, stdout io.ReadCloser, stderr *bytes.Buffer, conn VoiceConn) {
	sent, streamErr := e.streamOpus(p, stdout, conn)

	p.halt()
	_ = stdout.Close()
	waitErr := cmd.Wait()

	e.mu.Lock()
	mine := e.current == p
	if mine {
		e.current = nil
	}
	e.mu.Unlock()

	if !mine {
		return
	}

	// EOF on stdout is only a natural track end when ffmpeg also finished
	// cleanly and actually delivered audio. An expired stream URL makes
	// ffmpeg exit non-zero having produced nothing; that must surface as
	// a stream error, not advance the queue.
	if streamErr == nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr) && exitErr.ExitCode() > 0:
			streamErr = fmt.Errorf("ffmpeg exited with code %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		case sent == 0:
			streamErr = errors.New("stream produced no audio")
		}
	}

	if streamErr != nil {
		e.log.Error().Err(streamErr).Msg("stream failed")
		if e.events.Error != nil {
			e.events.Error(streamErr)
		}
		return
	}
	if e.events.TrackEnd != nil {
		e.events.TrackEnd()
	}
}

// streamOpus pushes opus packets at frame rate until EOF, stop or error.
// Returns how many packets were delivered; the error is nil on natural end
// of stream and on stop.
func (e *PlaybackEngine) streamOpus(p *playback, r io.Reader, conn VoiceConn) (int, error) {
	pages := newOggPageReader(r)
	ticker := time.NewTicker(opusFrameInterval)
	defer ticker.Stop()

	safeSpeaking(conn, true)
	defer safeSpeaking(conn, false)

	sent := 0
	for {
		select {
		case <-p.stop:
			return sent, nil
		default:
		}

		if e.waitWhilePaused(p, conn) {
			return sent, nil
		}

		page, err := pages.next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sent, nil
			}
			if p.halted() {
				return sent, nil
			}
			return sent, fmt.Errorf("ogg demux: %w", err)
		}
		if page.header {
			continue
		}

		for _, packet := range page.packets {
			if len(packet) == 0 {
				continue
			}
			if e.waitWhilePaused(p, conn) {
				return sent, nil
			}

			<-ticker.C

			select {
			case conn.OpusSend() <- packet:
				sent++
			case <-p.stop:
				return sent, nil
			case <-time.After(time.Second):
				e.log.Warn().Msg("timed out sending opus frame")
			}
		}
	}
}

// waitWhilePaused parks the stream while paused; reports true when the
// playback was stopped meanwhile.
func (e *PlaybackEngine) waitWhilePaused(p *playback, conn VoiceConn) bool {
	e.mu.Lock()
	paused := e.paused
	e.mu.Unlock()
	if !paused {
		return false
	}

	safeSpeaking(conn, false)
	for paused {
		select {
		case <-p.stop:
			return true
		case <-time.After(50 * time.Millisecond):
		}
		e.mu.Lock()
		paused = e.paused
		e.mu.Unlock()
	}
	safeSpeaking(conn, true)
	return false
}

// Stop halts the running stream without firing the end-of-track event.
func (e *PlaybackEngine) Stop() {
	e.mu.Lock()
	if e.current != nil {
		e.current.halt()
		e.current = nil
	}
	e.paused = false
	e.mu.Unlock()
}

func (e *PlaybackEngine) SetPaused(paused bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil && paused {
		return false
	}
	e.paused = paused
	return true
}

func (e *PlaybackEngine) Close() {
	e.Stop()
	e.mu.Lock()
	e.conn = nil
	e.mu.Unlock()
}

func safeSpeaking(conn VoiceConn, speaking bool) {
	if conn == nil {
		return
	}
	_ = conn.Speaking(speaking)
}
