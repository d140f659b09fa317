package queueview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxnx/groovebot/internal/music"
)

func buildItems(n int) []*music.QueuedItem {
	items := make([]*music.QueuedItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, music.NewVideoItem(music.UserRef{ID: "u"}, music.VideoMetadata{
			VideoID: "vid",
			Title:   "Track",
			Length:  65,
		}))
	}
	return items
}

func TestBuildQueueComponentsPaging(t *testing.T) {
	items := buildItems(23)

	_, info := BuildQueueComponents(items, 0, 1, 10)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 0, info.StartIndex)
	assert.Equal(t, 10, info.EndIndex)

	_, info = BuildQueueComponents(items, 0, 3, 10)
	assert.Equal(t, 20, info.StartIndex)
	assert.Equal(t, 23, info.EndIndex)

	// Out-of-range pages clamp instead of failing.
	_, info = BuildQueueComponents(items, 0, 99, 10)
	assert.Equal(t, 3, info.Page)

	_, info = BuildQueueComponents(nil, 0, 1, 10)
	assert.Equal(t, 1, info.TotalPages)
	assert.Equal(t, 0, info.TotalItems)
}

func TestQueuePageCustomIDRoundTrip(t *testing.T) {
	id := MakeQueuePageCustomID(2, 15)
	page, perPage, ok := ParseQueuePageCustomID(id)
	require.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, 15, perPage)

	_, _, ok = ParseQueuePageCustomID("something_else:1:10")
	assert.False(t, ok)
	_, _, ok = ParseQueuePageCustomID(CustomIDPrefix + ":zero:10")
	assert.False(t, ok)
}

func TestFormatLength(t *testing.T) {
	assert.Equal(t, "0:00", formatLength(0))
	assert.Equal(t, "1:05", formatLength(65))
	assert.Equal(t, "1:01:01", formatLength(3661))
}
