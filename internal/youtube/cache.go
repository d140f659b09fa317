package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/music"
)

const videoCacheTTL = 12 * time.Hour

// RedisMetadataCache keeps resolved video metadata in redis so repeated
// playlist passes and loop replays skip the innertube round trip. Lookups
// degrade to a cache miss on any redis failure.
type RedisMetadataCache struct {
	client *redislib.Client
	log    zerolog.Logger
}

func NewRedisMetadataCache(client *redislib.Client, logger zerolog.Logger) *RedisMetadataCache {
	return &RedisMetadataCache{
		client: client,
		log:    logger.With().Str("component", "metadata_cache").Logger(),
	}
}

func videoKey(videoID string) string {
	return "music:video:" + videoID
}

func (c *RedisMetadataCache) GetVideo(ctx context.Context, videoID string) (*music.VideoMetadata, bool) {
	raw, err := c.client.Get(ctx, videoKey(videoID)).Bytes()
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			c.log.Warn().Err(err).Str("video_id", videoID).Msg("metadata cache read failed")
		}
		return nil, false
	}

	var details music.VideoMetadata
	if err := json.Unmarshal(raw, &details); err != nil {
		c.log.Warn().Err(err).Str("video_id", videoID).Msg("dropping corrupt metadata cache entry")
		_ = c.client.Del(ctx, videoKey(videoID)).Err()
		return nil, false
	}
	return &details, true
}

func (c *RedisMetadataCache) SetVideo(ctx context.Context, details music.VideoMetadata) {
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, videoKey(details.VideoID), raw, videoCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("video_id", details.VideoID).Msg("metadata cache write failed")
	}
}
