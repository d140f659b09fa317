package bot

import (
	"fmt"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/config"
	"github.com/hxnx/groovebot/internal/database"
	commands "github.com/hxnx/groovebot/internal/features"
	"github.com/hxnx/groovebot/internal/music"
	"github.com/hxnx/groovebot/internal/redis"
	"github.com/hxnx/groovebot/internal/youtube"
)

type Bot struct {
	config  *config.Config
	session *discordgo.Session

	manager   *music.Manager
	snapshots *music.SnapshotStore
	guilds    *database.GuildRepository

	sweepStop    func()
	presenceStop chan struct{}
	started      bool
	log          zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) (*Bot, error) {
	dbConfig := &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	if err := database.Initalize(dbConfig); err != nil {
		logger.Warn().Err(err).Msg("database initialization failed, guild settings disabled")
	}

	redisConfig := redis.Config{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PingAttempts: cfg.RedisPingAttempts,
	}
	if _, err := redis.Init(redisConfig, logger); err != nil {
		logger.Warn().Err(err).Msg("redis initialization failed, metadata cache disabled")
	}

	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	snapshots, err := music.NewSnapshotStore(
		filepath.Join(cfg.DataDir, "queues"), cfg.QueueCacheMaxAge, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up queue cache: %w", err)
	}

	var metadataCache youtube.MetadataCache
	if redis.Client() != nil {
		metadataCache = youtube.NewRedisMetadataCache(redis.Client(), logger)
	}
	source := youtube.NewSource(metadataCache, logger)
	guilds := database.NewGuildRepository()

	manager := music.NewManager(music.ManagerConfig{
		Dialer:    &voiceDialer{session: s},
		Announcer: newAnnouncer(s, guilds, logger),
		Source:    source,
		Snapshots: snapshots,
		NewEngine: func(guildID string, events music.EngineEvents) music.Engine {
			return music.NewPlaybackEngine(guildID, source, events, logger)
		},
		JoinTimeout: cfg.JoinTimeout,
		Logger:      logger,
	})

	b := &Bot{
		config:    cfg,
		session:   s,
		manager:   manager,
		snapshots: snapshots,
		guilds:    guilds,
		log:       logger.With().Str("component", "bot").Logger(),
	}

	commands.Setup(commands.Deps{
		Config:  cfg,
		Manager: manager,
		Source:  source,
		Guilds:  guilds,
		Log:     logger,
	})

	return b, nil
}

func (b *Bot) Start() error {
	if b.started {
		return nil
	}

	b.registerHandlers()
	commands.AddHandlers(b.session)

	if _, err := commands.RegisterCommands(b.session, b.config.ApplicationID, b.config.GuildID, b.config.DataDir); err != nil {
		b.log.Warn().Err(err).Msg("failed to register slash commands")
	}

	if err := b.session.Open(); err != nil {
		return err
	}

	b.sweepStop = b.snapshots.StartSweeper(b.config.SweepInterval)
	b.startPresenceUpdater()
	b.started = true
	b.log.Info().Msg("gateway session opened")
	return nil
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if s.State != nil && s.State.User != nil {
			b.log.Info().Str("user", s.State.User.Username).Msg("bot ready")
		} else {
			b.log.Info().Msg("bot ready")
		}
		b.updatePresence()
	})
}

func (b *Bot) Stop() error {
	if !b.started {
		return nil
	}

	b.started = false
	b.stopPresenceUpdater()
	if b.sweepStop != nil {
		b.sweepStop()
		b.sweepStop = nil
	}

	b.manager.Shutdown()

	if err := b.session.Close(); err != nil {
		return err
	}

	if err := database.Close(); err != nil {
		b.log.Warn().Err(err).Msg("failed to close database")
	}
	if err := redis.Close(); err != nil {
		b.log.Warn().Err(err).Msg("failed to close redis")
	}

	b.log.Info().Msg("gateway session closed")
	return nil
}
