package database

import (
	"context"
	"database/sql"
	"time"
)

const guildRepoTimeout = 2 * time.Second

// GuildSettings are per-guild knobs stored in postgres. Missing rows mean
// defaults; every accessor degrades to defaults when no database is wired.
type GuildSettings struct {
	GuildID           string
	AnnounceChannelID string
	LoopDisabled      bool
}

type GuildRepository struct {
	db *sql.DB
}

func NewGuildRepository() *GuildRepository {
	return &GuildRepository{db: GetDB()}
}

func (r *GuildRepository) GetSettings(guildID string) (GuildSettings, error) {
	settings := GuildSettings{GuildID: guildID}
	if r == nil || r.db == nil || guildID == "" {
		return settings, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), guildRepoTimeout)
	defer cancel()

	const query = `
		SELECT announce_channel_id, loop_disabled
		FROM guild_settings
		WHERE guild_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, guildID).Scan(&settings.AnnounceChannelID, &settings.LoopDisabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return settings, nil
		}
		return settings, err
	}
	return settings, nil
}

func (r *GuildRepository) SetAnnounceChannel(guildID, channelID string) error {
	if r == nil || r.db == nil || guildID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), guildRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO guild_settings (guild_id, announce_channel_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (guild_id)
		DO UPDATE SET
			announce_channel_id = EXCLUDED.announce_channel_id,
			updated_at = NOW();
	`

	_, err := r.db.ExecContext(ctx, query, guildID, channelID)
	return err
}

func (r *GuildRepository) SetLoopDisabled(guildID string, disabled bool) error {
	if r == nil || r.db == nil || guildID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), guildRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO guild_settings (guild_id, loop_disabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (guild_id)
		DO UPDATE SET
			loop_disabled = EXCLUDED.loop_disabled,
			updated_at = NOW();
	`

	_, err := r.db.ExecContext(ctx, query, guildID, disabled)
	return err
}

func (r *GuildRepository) DeleteSettings(guildID string) error {
	if r == nil || r.db == nil || guildID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), guildRepoTimeout)
	defer cancel()

	const query = `
		DELETE FROM guild_settings
		WHERE guild_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, guildID)
	return err
}
