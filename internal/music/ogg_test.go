package music

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPage assembles a minimal OGG page around the given packet payloads.
func buildPage(headerType byte, packets ...[]byte) []byte {
	var segments []byte
	var data []byte
	for _, packet := range packets {
		remaining := len(packet)
		for remaining >= 255 {
			segments = append(segments, 255)
			remaining -= 255
		}
		segments = append(segments, byte(remaining))
		data = append(data, packet...)
	}

	page := []byte("OggS")
	page = append(page, 0)          // version
	page = append(page, headerType) // header type
	page = append(page, make([]byte, 8)...)  // granule position
	page = append(page, make([]byte, 4)...)  // serial
	page = append(page, make([]byte, 4)...)  // sequence
	page = append(page, make([]byte, 4)...)  // checksum
	page = append(page, byte(len(segments)))
	page = append(page, segments...)
	page = append(page, data...)
	return page
}

func TestOggPageReaderExtractsPackets(t *testing.T) {
	p1 := bytes.Repeat([]byte{0xAA}, 10)
	p2 := bytes.Repeat([]byte{0xBB}, 20)
	r := newOggPageReader(bytes.NewReader(buildPage(0, p1, p2)))

	page, err := r.next()
	require.NoError(t, err)
	assert.False(t, page.header)
	require.Len(t, page.packets, 2)
	assert.Equal(t, p1, page.packets[0])
	assert.Equal(t, p2, page.packets[1])

	_, err = r.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOggPageReaderReassemblesLacedPacket(t *testing.T) {
	// 300 bytes laces as a 255 segment continued by a 45 segment.
	big := bytes.Repeat([]byte{0xCC}, 300)
	r := newOggPageReader(bytes.NewReader(buildPage(0, big)))

	page, err := r.next()
	require.NoError(t, err)
	require.Len(t, page.packets, 1)
	assert.Equal(t, big, page.packets[0])
}

func TestOggPageReaderDetectsCodecHeaders(t *testing.T) {
	head := append([]byte("OpusHead"), make([]byte, 11)...)
	tags := append([]byte("OpusTags"), make([]byte, 4)...)

	stream := append(buildPage(0x02, head), buildPage(0, tags)...)
	stream = append(stream, buildPage(0, []byte{0x01, 0x02})...)
	r := newOggPageReader(bytes.NewReader(stream))

	page, err := r.next()
	require.NoError(t, err)
	assert.True(t, page.header, "OpusHead page")

	page, err = r.next()
	require.NoError(t, err)
	assert.True(t, page.header, "OpusTags page")

	page, err = r.next()
	require.NoError(t, err)
	assert.False(t, page.header)
	require.Len(t, page.packets, 1)
}

func TestOggPageReaderSyncsPastGarbage(t *testing.T) {
	payload := []byte{0x0F, 0x0E}
	stream := append([]byte("garbage Oggs not-quite"), buildPage(0, payload)...)
	r := newOggPageReader(bytes.NewReader(stream))

	page, err := r.next()
	require.NoError(t, err)
	require.Len(t, page.packets, 1)
	assert.Equal(t, payload, page.packets[0])
}

func TestSplitPacketsTrailingContinuation(t *testing.T) {
	// A packet of exactly 255 bytes ends the page without a terminator
	// segment; it must still be emitted.
	data := bytes.Repeat([]byte{0xDD}, 255)
	packets := splitPackets([]byte{255}, data)
	require.Len(t, packets, 1)
	assert.Equal(t, data, packets[0])
}
