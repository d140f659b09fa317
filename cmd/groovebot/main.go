package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/config"
	"github.com/hxnx/groovebot/internal/bot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Required environment variables:")
		fmt.Fprintln(os.Stderr, "  DISCORD_TOKEN          - Discord bot token")
		fmt.Fprintln(os.Stderr, "  DISCORD_APPLICATION_ID - Discord application ID")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Optional environment variables:")
		fmt.Fprintln(os.Stderr, "  DISCORD_GUILD_ID           - Guild ID for development registration")
		fmt.Fprintln(os.Stderr, "  LOG_LEVEL / LOG_PRETTY     - Logging configuration")
		fmt.Fprintln(os.Stderr, "  DATA_DIR                   - Queue cache and registration state directory")
		fmt.Fprintln(os.Stderr, "  QUEUE_CACHE_MAX_AGE        - Snapshot retention window (default 8h)")
		fmt.Fprintln(os.Stderr, "  QUEUE_CACHE_SWEEP_INTERVAL - Snapshot sweep interval (default 1h)")
		fmt.Fprintln(os.Stderr, "  VOICE_JOIN_TIMEOUT         - Voice connect timeout (default 10s)")
		fmt.Fprintln(os.Stderr, "  SESSION_TERMINATION_GRACE  - Empty-channel leave delay (default 5s)")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Database: DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE")
		fmt.Fprintln(os.Stderr, "Redis:    REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB, REDIS_PING_ATTEMPTS")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.Info().Str("log_level", cfg.LogLevel).Msg("GrooveBot - Discord Music Bot")

	if cfg.IsDevelopment() {
		logger.Info().Str("guild_id", cfg.GuildID).Msg("mode: development (guild commands)")
	} else {
		logger.Info().Msg("mode: production (global commands)")
	}
	logger.Info().
		Str("data_dir", cfg.DataDir).
		Dur("queue_cache_max_age", cfg.QueueCacheMaxAge).
		Dur("join_timeout", cfg.JoinTimeout).
		Dur("termination_grace", cfg.TerminationGrace).
		Msg("configuration loaded")

	b, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot")
	}

	if err := b.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start bot")
	}
	logger.Info().Msg("bot is running, press CTRL+C to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	if err := b.Stop(); err != nil {
		logger.Error().Err(err).Msg("failed to stop bot cleanly")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
