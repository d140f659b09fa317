package queueview

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/groovebot/internal/music"
)

const (
	CustomIDPrefix = "music_queue_page"
	DefaultPerPage = 10
	MaxPerPage     = 25
)

type PageInfo struct {
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
	StartIndex int
	EndIndex   int
}

// BuildQueueComponents renders one page of the queue. position is the index
// of the currently playing item within items; it gets a marker.
func BuildQueueComponents(items []*music.QueuedItem, position int, page int, perPage int) ([]discordgo.MessageComponent, PageInfo) {
	total := len(items)
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = clamp(perPage, 1, MaxPerPage)
	totalPages := max(1, int(math.Ceil(float64(total)/float64(perPage))))
	page = clamp(page, 1, totalPages)

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	lines := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		lines = append(lines, formatItemLine(items[idx], idx, idx == position))
	}

	listContent := "대기열이 비어 있습니다."
	if len(lines) > 0 {
		listContent = strings.Join(lines, "\n")
	}

	info := PageInfo{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		StartIndex: start,
		EndIndex:   end,
	}

	divider := true
	spacing := discordgo.SeparatorSpacingSizeSmall
	accent := 0xC9A0FF

	prevDisabled := page <= 1
	nextDisabled := page >= totalPages

	components := []discordgo.MessageComponent{
		discordgo.Container{
			AccentColor: &accent,
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: "📋 **대기열**"},
				discordgo.TextDisplay{Content: fmt.Sprintf("페이지 **%d/%d** · 전체 **%d개**", page, totalPages, total)},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.TextDisplay{Content: listContent},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style:    discordgo.SecondaryButton,
							Label:    "이전",
							CustomID: MakeQueuePageCustomID(page-1, perPage),
							Disabled: prevDisabled,
						},
						discordgo.Button{
							Style:    discordgo.SecondaryButton,
							Label:    "다음",
							CustomID: MakeQueuePageCustomID(page+1, perPage),
							Disabled: nextDisabled,
						},
					},
				},
			},
		},
	}

	return components, info
}

func formatItemLine(item *music.QueuedItem, index int, active bool) string {
	marker := ""
	if active {
		marker = " ▶"
	}

	if pl := item.Playlist(); pl != nil {
		title := strings.TrimSpace(pl.PlaylistDetails.Title)
		if title == "" {
			title = "알 수 없는 재생목록"
		}
		progress := ""
		if active && len(pl.VideoList) > 0 {
			progress = fmt.Sprintf(" · %d/%d", pl.Position+1, len(pl.VideoList))
		}
		return fmt.Sprintf("%d. 📂 %s (%d곡%s)%s", index+1, title, len(pl.VideoList), progress, marker)
	}

	video := item.Video()
	title := strings.TrimSpace(video.VideoDetails.Title)
	if title == "" {
		title = "알 수 없는 제목"
	}
	length := formatLength(video.VideoDetails.Length)
	return fmt.Sprintf("%d. [%s](https://www.youtube.com/watch?v=%s) `%s`%s",
		index+1, title, video.VideoDetails.VideoID, length, marker)
}

func formatLength(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func MakeQueuePageCustomID(page int, perPage int) string {
	if page < 1 {
		page = 1
	}
	perPage = clamp(perPage, 1, MaxPerPage)
	return fmt.Sprintf("%s:%d:%d", CustomIDPrefix, page, perPage)
}

func ParseQueuePageCustomID(customID string) (page int, perPage int, ok bool) {
	if !strings.HasPrefix(customID, CustomIDPrefix+":") {
		return 0, 0, false
	}

	parts := strings.Split(customID, ":")
	if len(parts) != 3 {
		return 0, 0, false
	}

	pageVal, err := strconv.Atoi(parts[1])
	if err != nil || pageVal < 1 {
		return 0, 0, false
	}

	perPageVal, err := strconv.Atoi(parts[2])
	if err != nil || perPageVal < 1 {
		return 0, 0, false
	}

	return pageVal, clamp(perPageVal, 1, MaxPerPage), true
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
