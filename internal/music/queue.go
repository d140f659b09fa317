package music

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrQueueExhausted = errors.New("no more items in queue")
	ErrNoActiveVideo  = errors.New("no active video to play")
)

// VideoSource resolves external video ids to metadata. Playlist entries are
// resolved lazily through it, one video at a time.
type VideoSource interface {
	VideoByID(ctx context.Context, videoID string) (VideoMetadata, error)
}

// Queue is the ordered per-session playback queue. The cursor (position)
// indexes the physical item slice; removed items are only marked deleted so
// indices held by in-flight operations stay stable, and every read path
// filters them out.
type Queue struct {
	mu        sync.Mutex
	items     []*QueuedItem
	position  int
	session   *Session
	source    VideoSource
	snapshots *SnapshotStore
	log       zerolog.Logger
}

func newQueue(session *Session, source VideoSource, snapshots *SnapshotStore, logger zerolog.Logger) *Queue {
	return &Queue{
		session:   session,
		source:    source,
		snapshots: snapshots,
		log:       logger.With().Str("component", "queue").Logger(),
	}
}

// Items returns a snapshot of the queue, excluding deleted entries unless
// withDeleted is set.
func (q *Queue) Items(withDeleted bool) []*QueuedItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*QueuedItem, 0, len(q.items))
	for _, it := range q.items {
		if !withDeleted && it.IsDeleted() {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Position returns the cursor as an index into the deleted-filtered view,
// which is what listings and snapshots work with.
func (q *Queue) Position() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.visiblePositionLocked()
}

func (q *Queue) visiblePositionLocked() int {
	pos := 0
	for i := 0; i < q.position && i < len(q.items); i++ {
		if !q.items[i].IsDeleted() {
			pos++
		}
	}
	return pos
}

// Push appends an item. Playback starts immediately when requested, or when
// nothing is playing and the cursor already sits at the last playable slot;
// in that case the cursor jumps to the new item. Joining the voice channel
// happens first if needed, and a join failure fails the push.
func (q *Queue) Push(ctx context.Context, item *QueuedItem, playNow bool) (bool, error) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.persist()

	if !q.session.IsJoined() {
		if err := q.session.Join(ctx); err != nil {
			return false, err
		}
	}

	if playNow || q.playerAvailable() {
		q.mu.Lock()
		q.position = len(q.items) - 1
		q.mu.Unlock()
		q.persist()

		if _, err := q.playActive(ctx, false); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// playerAvailable reports whether a freshly pushed item would naturally play
// right away: nothing playing and at most one undeleted item past the cursor.
func (q *Queue) playerAvailable() bool {
	if q.session.Engine() != nil && q.session.Engine().IsPlaying() {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := 0
	for i := q.position + 1; i < len(q.items); i++ {
		if !q.items[i].IsDeleted() {
			remaining++
		}
	}
	return remaining <= 1
}

// Step advances to the next track. A playlist at the cursor advances its own
// internal cursor first unless skipPlaylist is set; otherwise the queue
// cursor moves to the next undeleted slot. Stepping onto a playlist plays it
// from its current (initially first) entry without consuming one. Returns
// ErrQueueExhausted when nothing is left; the caller decides whether to stop.
func (q *Queue) Step(ctx context.Context, skipPlaylist, announce bool) (*QueuedVideo, error) {
	q.mu.Lock()

	advanced := false
	if active := q.activeItemLocked(); active != nil && active.Kind() == KindPlaylist && !skipPlaylist {
		pl := active.Playlist()
		if pl.Position < len(pl.VideoList)-1 {
			pl.Position++
			advanced = true
		}
	}

	if !advanced {
		next := q.position + 1
		for next < len(q.items) {
			it := q.items[next]
			if it.IsDeleted() {
				next++
				continue
			}
			if pl := it.Playlist(); pl != nil && pl.Position >= len(pl.VideoList) {
				// Playlist already ran dry on a previous pass.
				next++
				continue
			}
			break
		}
		if next >= len(q.items) {
			q.mu.Unlock()
			return nil, ErrQueueExhausted
		}
		q.position = next
	}

	q.mu.Unlock()
	q.persist()

	return q.playActive(ctx, announce)
}

// ActiveItem returns the undeleted item at the cursor, or nil for an empty
// or fully consumed queue.
func (q *Queue) ActiveItem() *QueuedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.activeItemLocked()
}

func (q *Queue) activeItemLocked() *QueuedItem {
	if q.position < 0 || q.position >= len(q.items) {
		return nil
	}
	it := q.items[q.position]
	if it.IsDeleted() {
		return nil
	}
	return it
}

// ActiveVideo resolves the item at the cursor down to a playable video. For
// playlists the entry at the playlist cursor is resolved through the video
// source and memoized until the cursor moves on. Returns nil without error
// when there is nothing at the cursor.
func (q *Queue) ActiveVideo(ctx context.Context) (*QueuedVideo, error) {
	q.mu.Lock()
	item := q.activeItemLocked()
	if item == nil {
		q.mu.Unlock()
		return nil, nil
	}
	if item.Kind() == KindVideo {
		v := item.Video()
		q.mu.Unlock()
		return v, nil
	}

	pl := item.Playlist()
	if pl.Position >= len(pl.VideoList) {
		q.mu.Unlock()
		return nil, nil
	}
	wantID := pl.VideoList[pl.Position]
	if pl.ActiveVideo != nil && pl.ActiveVideo.VideoDetails.VideoID == wantID {
		v := pl.ActiveVideo
		q.mu.Unlock()
		return v, nil
	}
	user := pl.User
	addedAt := pl.AddedAt
	q.mu.Unlock()

	details, err := q.source.VideoByID(ctx, wantID)
	if err != nil {
		return nil, err
	}
	video := &QueuedVideo{
		ID:           uuid.New(),
		User:         user,
		AddedAt:      addedAt,
		VideoDetails: details,
	}

	q.mu.Lock()
	// Re-check the key: the playlist cursor may have moved while resolving.
	if pl.Position < len(pl.VideoList) && pl.VideoList[pl.Position] == wantID {
		pl.ActiveVideo = video
	}
	q.mu.Unlock()

	return video, nil
}

// Remove marks an item deleted. Returns false when the id is unknown or
// refers to the item at the cursor; removing the playing item is disallowed.
func (q *Queue) Remove(itemID uuid.UUID) bool {
	q.mu.Lock()
	var target *QueuedItem
	for _, it := range q.items {
		if it.ID() == itemID && !it.IsDeleted() {
			target = it
			break
		}
	}
	if target == nil || target == q.activeItemLocked() {
		q.mu.Unlock()
		return false
	}
	target.markDeleted()
	q.mu.Unlock()

	q.persist()
	return true
}

// Clear resets to an empty queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.position = 0
	q.mu.Unlock()
	q.persist()
}

// Restore replaces the live queue with the last persisted snapshot for this
// guild, if one exists and is not past retention. When the engine is idle
// and the restored cursor resolves to a playable video, playback resumes.
func (q *Queue) Restore(ctx context.Context) (bool, error) {
	if q.snapshots == nil {
		return false, nil
	}
	data, err := q.snapshots.Load(q.session.GuildID)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) || errors.Is(err, ErrSnapshotStale) {
			return false, nil
		}
		return false, err
	}

	q.mu.Lock()
	q.items = data.Items
	q.position = data.Position
	if q.position < 0 || q.position >= len(q.items) {
		q.position = 0
	}
	q.mu.Unlock()

	playing := q.session.Engine() != nil && q.session.Engine().IsPlaying()
	if playing || q.ActiveItem() == nil {
		return true, nil
	}
	if _, err := q.playActive(ctx, true); err != nil {
		return true, err
	}
	return true, nil
}

func (q *Queue) playActive(ctx context.Context, announce bool) (*QueuedVideo, error) {
	video, err := q.ActiveVideo(ctx)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, ErrNoActiveVideo
	}

	if err := q.session.playVideo(ctx, video); err != nil {
		return nil, err
	}

	if announce {
		var from *QueuedPlaylist
		if item := q.ActiveItem(); item != nil {
			from = item.Playlist()
		}
		q.session.announceVideo(video, from)
	}
	return video, nil
}

// persist writes the post-mutation state to the snapshot store. Best effort:
// a failed write is logged and never fails the operation that triggered it.
func (q *Queue) persist() {
	if q.snapshots == nil {
		return
	}

	q.mu.Lock()
	items := make([]*QueuedItem, 0, len(q.items))
	for _, it := range q.items {
		if !it.IsDeleted() {
			items = append(items, it)
		}
	}
	position := q.visiblePositionLocked()
	q.mu.Unlock()

	if err := q.snapshots.Save(q.session.GuildID, items, position); err != nil {
		q.log.Warn().Err(err).Msg("failed to persist queue snapshot")
	}
}

// Duration sums the known lengths of all undeleted videos, for listings.
func (q *Queue) Duration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, it := range q.items {
		if it.IsDeleted() {
			continue
		}
		if v := it.Video(); v != nil {
			total += v.VideoDetails.Length
		}
	}
	return time.Duration(total) * time.Second
}
