package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken  string
	ApplicationID string

	GuildID string

	LogLevel  string
	LogPretty bool

	DataDir          string
	QueueCacheMaxAge time.Duration
	SweepInterval    time.Duration

	JoinTimeout      time.Duration
	TerminationGrace time.Duration

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost         string
	RedisPort         int
	RedisPassword     string
	RedisDB           int
	RedisPingAttempts int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		ApplicationID: os.Getenv("DISCORD_APPLICATION_ID"),

		GuildID: os.Getenv("DISCORD_GUILD_ID"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY"),

		DataDir:          getEnvWithDefault("DATA_DIR", "data"),
		QueueCacheMaxAge: getEnvAsDurationWithDefault("QUEUE_CACHE_MAX_AGE", 8*time.Hour),
		SweepInterval:    getEnvAsDurationWithDefault("QUEUE_CACHE_SWEEP_INTERVAL", time.Hour),

		JoinTimeout:      getEnvAsDurationWithDefault("VOICE_JOIN_TIMEOUT", 10*time.Second),
		TerminationGrace: getEnvAsDurationWithDefault("SESSION_TERMINATION_GRACE", 5*time.Second),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnvAsInt("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  os.Getenv("DB_SSLMODE"),

		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPort:         getEnvAsInt("REDIS_PORT"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsIntWithDefault("REDIS_DB", 0),
		RedisPingAttempts: getEnvAsIntWithDefault("REDIS_PING_ATTEMPTS", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}

	if c.ApplicationID == "" {
		return errors.New("DISCORD_APPLICATION_ID is required")
	}

	if c.QueueCacheMaxAge <= 0 {
		return errors.New("QUEUE_CACHE_MAX_AGE must be positive")
	}

	if c.JoinTimeout <= 0 {
		return errors.New("VOICE_JOIN_TIMEOUT must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.GuildID != ""
}

func getEnvAsInt(key string) int {
	return getEnvAsIntWithDefault(key, 0)
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return false
}

func getEnvAsDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
