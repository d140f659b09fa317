package music

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRef identifies the member who queued an item.
type UserRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarURL,omitempty"`
}

type AuthorMetadata struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// VideoMetadata holds the resolved details of a single YouTube video.
type VideoMetadata struct {
	VideoID    string         `json:"videoId"`
	Title      string         `json:"title"`
	Length     int            `json:"length"`
	Thumbnail  string         `json:"thumbnail"`
	Author     AuthorMetadata `json:"author"`
	UploadDate string         `json:"uploadDate,omitempty"`
}

type PlaylistMetadata struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ChannelTitle string `json:"channelTitle,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
}

// QueuedVideo is a single queued track.
type QueuedVideo struct {
	ID           uuid.UUID     `json:"id"`
	User         UserRef       `json:"user"`
	AddedAt      time.Time     `json:"addedAt"`
	Deleted      bool          `json:"deleted"`
	VideoDetails VideoMetadata `json:"videoDetails"`
}

// QueuedPlaylist is a queued playlist with its own internal cursor.
// ActiveVideo memoizes the resolved video at Position; it is only valid
// while its video id still matches VideoList[Position].
type QueuedPlaylist struct {
	ID              uuid.UUID        `json:"id"`
	User            UserRef          `json:"user"`
	AddedAt         time.Time        `json:"addedAt"`
	Deleted         bool             `json:"deleted"`
	PlaylistID      string           `json:"playlistID"`
	VideoList       []string         `json:"videoList"`
	Position        int              `json:"position"`
	PlaylistDetails PlaylistMetadata `json:"playlistDetails"`
	ActiveVideo     *QueuedVideo     `json:"activeVideo,omitempty"`
}

type ItemKind int

const (
	KindVideo ItemKind = iota
	KindPlaylist
)

// QueuedItem is the sum of QueuedVideo and QueuedPlaylist. Exactly one of
// the two variants is set; Kind reports which.
type QueuedItem struct {
	video    *QueuedVideo
	playlist *QueuedPlaylist
}

func NewVideoItem(user UserRef, details VideoMetadata) *QueuedItem {
	return &QueuedItem{video: &QueuedVideo{
		ID:           uuid.New(),
		User:         user,
		AddedAt:      time.Now().UTC(),
		VideoDetails: details,
	}}
}

func NewPlaylistItem(user UserRef, playlistID string, videoIDs []string, details PlaylistMetadata) *QueuedItem {
	return &QueuedItem{playlist: &QueuedPlaylist{
		ID:              uuid.New(),
		User:            user,
		AddedAt:         time.Now().UTC(),
		PlaylistID:      playlistID,
		VideoList:       videoIDs,
		PlaylistDetails: details,
	}}
}

func (it *QueuedItem) Kind() ItemKind {
	if it.playlist != nil {
		return KindPlaylist
	}
	return KindVideo
}

func (it *QueuedItem) ID() uuid.UUID {
	switch it.Kind() {
	case KindPlaylist:
		return it.playlist.ID
	default:
		return it.video.ID
	}
}

func (it *QueuedItem) User() UserRef {
	switch it.Kind() {
	case KindPlaylist:
		return it.playlist.User
	default:
		return it.video.User
	}
}

func (it *QueuedItem) IsDeleted() bool {
	switch it.Kind() {
	case KindPlaylist:
		return it.playlist.Deleted
	default:
		return it.video.Deleted
	}
}

func (it *QueuedItem) markDeleted() {
	switch it.Kind() {
	case KindPlaylist:
		it.playlist.Deleted = true
	default:
		it.video.Deleted = true
	}
}

// Video returns the video variant, or nil if this item is a playlist.
func (it *QueuedItem) Video() *QueuedVideo {
	return it.video
}

// Playlist returns the playlist variant, or nil if this item is a video.
func (it *QueuedItem) Playlist() *QueuedPlaylist {
	return it.playlist
}

// Title returns the display title of either variant.
func (it *QueuedItem) Title() string {
	switch it.Kind() {
	case KindPlaylist:
		return it.playlist.PlaylistDetails.Title
	default:
		return it.video.VideoDetails.Title
	}
}

// MarshalJSON flattens the active variant into a single object; the variant
// is recovered on load from the presence of videoDetails vs videoList.
func (it *QueuedItem) MarshalJSON() ([]byte, error) {
	switch it.Kind() {
	case KindPlaylist:
		return json.Marshal(it.playlist)
	default:
		return json.Marshal(it.video)
	}
}

func (it *QueuedItem) UnmarshalJSON(data []byte) error {
	var probe struct {
		VideoDetails *json.RawMessage `json:"videoDetails"`
		VideoList    *json.RawMessage `json:"videoList"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch {
	case probe.VideoDetails != nil:
		var v QueuedVideo
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		it.video = &v
		it.playlist = nil
	case probe.VideoList != nil:
		var p QueuedPlaylist
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		it.playlist = &p
		it.video = nil
	default:
		return fmt.Errorf("queued item has neither videoDetails nor videoList")
	}
	return nil
}
