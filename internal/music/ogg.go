package music

import (
	"bufio"
	"io"
)

// oggPage is one demuxed OGG page: its opus packets, and whether it carries
// codec headers (OpusHead/OpusTags) rather than audio.
type oggPage struct {
	header  bool
	packets [][]byte
}

// oggPageReader pulls opus packets out of an OGG byte stream, page by page.
// ffmpeg muxes the transcoded audio as ogg/opus; the voice transport wants
// raw opus packets.
type oggPageReader struct {
	r *bufio.Reader
}

func newOggPageReader(r io.Reader) *oggPageReader {
	return &oggPageReader{r: bufio.NewReaderSize(r, 65536)}
}

func (pr *oggPageReader) next() (*oggPage, error) {
	if err := pr.sync(); err != nil {
		return nil, err
	}

	// 23 remaining bytes of the 27-byte page header after the "OggS" magic.
	rest := make([]byte, 23)
	if _, err := io.ReadFull(pr.r, rest); err != nil {
		return nil, err
	}

	headerType := rest[1]
	segmentCount := rest[22]

	segmentTable := make([]byte, segmentCount)
	if _, err := io.ReadFull(pr.r, segmentTable); err != nil {
		return nil, err
	}

	pageSize := 0
	for _, seg := range segmentTable {
		pageSize += int(seg)
	}

	pageData := make([]byte, pageSize)
	if _, err := io.ReadFull(pr.r, pageData); err != nil {
		return nil, err
	}

	header := headerType&0x02 != 0
	if len(pageData) >= 8 {
		magic := string(pageData[:8])
		if magic == "OpusHead" || magic == "OpusTags" {
			header = true
		}
	}

	return &oggPage{
		header:  header,
		packets: splitPackets(segmentTable, pageData),
	}, nil
}

// sync discards bytes until the next "OggS" capture pattern.
func (pr *oggPageReader) sync() error {
	for {
		b, err := pr.r.ReadByte()
		if err != nil {
			return err
		}
		if b != 'O' {
			continue
		}

		peek, err := pr.r.Peek(3)
		if err != nil {
			return err
		}
		if string(peek) == "ggS" {
			_, _ = pr.r.Discard(3)
			return nil
		}
	}
}

// splitPackets reassembles packets from the segment lacing table: segments
// of 255 bytes continue the current packet, anything shorter ends it.
func splitPackets(segmentTable []byte, pageData []byte) [][]byte {
	var packets [][]byte
	var current []byte
	offset := 0

	for _, segSize := range segmentTable {
		size := int(segSize)
		if offset+size > len(pageData) {
			break
		}

		current = append(current, pageData[offset:offset+size]...)
		offset += size

		if segSize < 255 && len(current) > 0 {
			packet := make([]byte, len(current))
			copy(packet, current)
			packets = append(packets, packet)
			current = current[:0]
		}
	}

	if len(current) > 0 {
		packet := make([]byte, len(current))
		copy(packet, current)
		packets = append(packets, packet)
	}

	return packets
}
