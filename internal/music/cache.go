package music

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNoSnapshot    = errors.New("no queue snapshot for guild")
	ErrSnapshotStale = errors.New("queue snapshot past retention window")
)

const (
	// DefaultSnapshotMaxAge bounds how long a crashed guild's queue stays
	// restorable.
	DefaultSnapshotMaxAge = 8 * time.Hour
	// DefaultSweepInterval is how often stale snapshot files are pruned.
	DefaultSweepInterval = time.Hour
)

type snapshotFile struct {
	UpdateTime    int64        `json:"update_time"`
	PreviousQueue SnapshotData `json:"previousQueue"`
}

// SnapshotData is the restorable part of a queue: the deleted-filtered item
// list and the cursor within it.
type SnapshotData struct {
	Items    []*QueuedItem `json:"items"`
	Position int           `json:"position"`
}

// SnapshotStore persists one JSON queue snapshot per guild for crash
// recovery. Writes happen after every queue mutation and are best effort;
// the only read path is the user-triggered restore.
type SnapshotStore struct {
	dir    string
	maxAge time.Duration
	log    zerolog.Logger
}

func NewSnapshotStore(dir string, maxAge time.Duration, logger zerolog.Logger) (*SnapshotStore, error) {
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &SnapshotStore{
		dir:    dir,
		maxAge: maxAge,
		log:    logger.With().Str("component", "queue_cache").Logger(),
	}, nil
}

func (s *SnapshotStore) path(guildID string) string {
	return filepath.Join(s.dir, guildID+".json")
}

func (s *SnapshotStore) Save(guildID string, items []*QueuedItem, position int) error {
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}

	payload, err := json.Marshal(snapshotFile{
		UpdateTime: time.Now().UnixMilli(),
		PreviousQueue: SnapshotData{
			Items:    items,
			Position: position,
		},
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(guildID), payload, 0o644)
}

// Load returns the stored snapshot for a guild. A corrupt file is deleted
// and treated as absent.
func (s *SnapshotStore) Load(guildID string) (*SnapshotData, error) {
	raw, err := os.ReadFile(s.path(guildID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.log.Warn().Err(err).Str("guild_id", guildID).Msg("removing corrupt queue snapshot")
		_ = os.Remove(s.path(guildID))
		return nil, ErrNoSnapshot
	}

	if time.Since(time.UnixMilli(file.UpdateTime)) > s.maxAge {
		return nil, ErrSnapshotStale
	}
	if len(file.PreviousQueue.Items) == 0 {
		return nil, ErrNoSnapshot
	}
	return &file.PreviousQueue, nil
}

// Sweep deletes snapshot files past retention, returning how many were
// removed. Unreadable files count as expired.
func (s *SnapshotStore) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		expired := true
		if raw, err := os.ReadFile(path); err == nil {
			var file snapshotFile
			if err := json.Unmarshal(raw, &file); err == nil {
				expired = time.Since(time.UnixMilli(file.UpdateTime)) > s.maxAge
			}
		}
		if !expired {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("failed to remove stale snapshot")
			continue
		}
		removed++
	}
	return removed, nil
}

// StartSweeper prunes stale snapshots on a ticker until the returned stop
// function is called.
func (s *SnapshotStore) StartSweeper(interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				removed, err := s.Sweep()
				if err != nil {
					s.log.Warn().Err(err).Msg("snapshot sweep failed")
					continue
				}
				if removed > 0 {
					s.log.Info().Int("removed", removed).Msg("pruned stale queue snapshots")
				}
			}
		}
	}()

	return func() { close(stop) }
}
