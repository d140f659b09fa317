package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	client *redislib.Client
	once   sync.Once
)

const (
	defaultPingAttempts = 5
	defaultPingTimeout  = 3 * time.Second
	initialBackoff      = 200 * time.Millisecond
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// PingAttempts bounds how often the startup ping is retried before the
	// client is torn down; zero means the default.
	PingAttempts int
}

// Init connects the process-wide client and verifies it with a bounded,
// backed-off ping loop. Later calls return the already-initialized client.
func Init(cfg Config, logger zerolog.Logger) (*redislib.Client, error) {
	var initErr error

	once.Do(func() {
		log := logger.With().Str("component", "redis").Logger()

		attempts := cfg.PingAttempts
		if attempts <= 0 {
			attempts = defaultPingAttempts
		}

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		client = redislib.NewClient(&redislib.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		backoff := initialBackoff
		for attempt := 1; attempt <= attempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
			err := client.Ping(ctx).Err()
			cancel()

			if err == nil {
				log.Info().Str("addr", addr).Msg("redis connection established")
				initErr = nil
				return
			}

			initErr = err
			log.Warn().Err(err).Str("addr", addr).
				Int("attempt", attempt).Int("attempts", attempts).
				Msg("redis ping failed")
			if attempt < attempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}

		_ = client.Close()
		client = nil
	})

	if client == nil && initErr == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	return client, initErr
}

func Client() *redislib.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
