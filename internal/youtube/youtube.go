package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"regexp"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"github.com/rs/zerolog"

	"github.com/hxnx/groovebot/internal/music"
)

var (
	ErrNoSearchResults = errors.New("no search results for query")
	ErrNotPlaylistURL  = errors.New("url does not carry a playlist id")
	ErrEmptyPlaylist   = errors.New("playlist has no videos")
	ErrStreamResolve   = errors.New("failed to resolve audio stream url")
)

// Matches the list= parameter of every youtube playlist url shape we accept.
var playlistIDPattern = regexp.MustCompile(`^(?:http(?:s)?://)?(?:www\.)?youtu(?:\.be|be\.com)/(?:.+)?(?:&|\?)list=(.+?)(?:&|$)`)

// MetadataCache holds resolved video metadata between lookups. Both methods
// are best effort; a miss or failure just means hitting the API again.
type MetadataCache interface {
	GetVideo(ctx context.Context, videoID string) (*music.VideoMetadata, bool)
	SetVideo(ctx context.Context, details music.VideoMetadata)
}

// Source resolves user input (urls, ids, free-text queries) against YouTube.
// Metadata comes from the innertube API, search from the web search endpoint
// and raw audio stream urls from yt-dlp.
type Source struct {
	client *kkdai.Client
	cache  MetadataCache
	ytdlp  string
	log    zerolog.Logger
}

func NewSource(cache MetadataCache, logger zerolog.Logger) *Source {
	return &Source{
		client: &kkdai.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
		cache: cache,
		ytdlp: "yt-dlp",
		log:   logger.With().Str("component", "youtube").Logger(),
	}
}

// VideoByID resolves a video id to its metadata, consulting the cache first.
func (s *Source) VideoByID(ctx context.Context, videoID string) (music.VideoMetadata, error) {
	if s.cache != nil {
		if details, ok := s.cache.GetVideo(ctx, videoID); ok {
			return *details, nil
		}
	}

	video, err := s.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return music.VideoMetadata{}, fmt.Errorf("failed to fetch video %s: %w", videoID, err)
	}

	details := music.VideoMetadata{
		VideoID:   video.ID,
		Title:     video.Title,
		Length:    int(video.Duration.Seconds()),
		Thumbnail: bestThumbnail(video.Thumbnails),
		Author: music.AuthorMetadata{
			Name: video.Author,
			URL:  channelURL(video.ChannelID),
		},
	}
	if !video.PublishDate.IsZero() {
		details.UploadDate = video.PublishDate.Format("2006-01-02")
	}

	if s.cache != nil {
		s.cache.SetVideo(ctx, details)
	}
	return details, nil
}

// Playlist resolves a playlist id or url to its metadata and the ordered
// video id list.
func (s *Source) Playlist(ctx context.Context, idOrURL string) (music.PlaylistMetadata, []string, error) {
	playlist, err := s.client.GetPlaylistContext(ctx, idOrURL)
	if err != nil {
		return music.PlaylistMetadata{}, nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	if len(playlist.Videos) == 0 {
		return music.PlaylistMetadata{}, nil, ErrEmptyPlaylist
	}

	videoIDs := make([]string, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		videoIDs = append(videoIDs, entry.ID)
	}

	details := music.PlaylistMetadata{
		Title:        playlist.Title,
		Description:  playlist.Description,
		ChannelTitle: playlist.Author,
	}
	if len(playlist.Videos) > 0 {
		details.Thumbnail = bestThumbnail(playlist.Videos[0].Thumbnails)
	}
	return details, videoIDs, nil
}

// PlaylistIDFromURL extracts the list= id from a playlist url; fails with
// ErrNotPlaylistURL when the url has none.
func PlaylistIDFromURL(rawURL string) (string, error) {
	m := playlistIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", ErrNotPlaylistURL
	}
	return m[1], nil
}

// VideoIDFromQuery turns user input into a video id: urls and bare ids are
// parsed directly, anything else goes through search and takes the top hit.
func (s *Source) VideoIDFromQuery(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if id, err := kkdai.ExtractVideoID(query); err == nil {
		return id, nil
	}

	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range res.Results {
		if hit.VideoID != "" {
			return hit.VideoID, nil
		}
	}
	return "", ErrNoSearchResults
}

// StreamURL asks yt-dlp for the best direct audio stream url of a video.
func (s *Source) StreamURL(ctx context.Context, videoID string) (string, error) {
	cmd := exec.CommandContext(ctx, s.ytdlp,
		"--no-warnings",
		"-f", "bestaudio",
		"-g",
		"--no-playlist",
		"https://www.youtube.com/watch?v="+videoID,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: yt-dlp failed: %v: %s", ErrStreamResolve, err, strings.TrimSpace(string(output)))
	}

	streamURL := strings.TrimSpace(string(output))
	if streamURL == "" {
		return "", fmt.Errorf("%w: empty output", ErrStreamResolve)
	}
	// yt-dlp may print one url per requested format; the first is bestaudio.
	if i := strings.IndexByte(streamURL, '\n'); i >= 0 {
		streamURL = strings.TrimSpace(streamURL[:i])
	}
	return streamURL, nil
}

// bestThumbnail picks the highest-resolution thumbnail available.
func bestThumbnail(thumbnails kkdai.Thumbnails) string {
	best := ""
	bestArea := uint(0)
	for _, t := range thumbnails {
		area := t.Width * t.Height
		if best == "" || area > bestArea {
			best = t.URL
			bestArea = area
		}
	}
	return best
}

func channelURL(channelID string) string {
	if channelID == "" {
		return ""
	}
	return "https://www.youtube.com/channel/" + channelID
}
