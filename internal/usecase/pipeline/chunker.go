package pipeline

import (
	"fmt"
	"strings"

	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/pkg/keywords"
)

const (
	// chunkTargetBytes is the soft boundary: a chunk ending on sentence
	// punctuation is cut once it reaches this size.
	chunkTargetBytes = 1000
	// chunkMaxBytes is the hard boundary: a chunk is cut regardless of
	// punctuation once it reaches this size.
	chunkMaxBytes = 2000

	previewBytes = 300
)

// Chunk is one deterministic segment of a transcript. Text is the exact
// byte run the chunk occupies inside the transcript blob.
type Chunk struct {
	Index      int
	StartTime  int
	EndTime    int
	ByteOffset int
	ByteLength int
	Text       string
	Preview    string
	Keywords   []string
}

// FormatTimestamp renders seconds as the blob's MM:SS form. Minutes may
// exceed two digits for durations of 100 minutes or more.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ChunkSegments converts ordered caption segments into chunks. The cut
// policy, applied after appending each segment, is:
//
//	natural  = segment text ends with '.', '!' or '?'
//	cut when (natural AND len >= 1000) OR len >= 2000 OR final segment
//
// The concatenation of all chunk texts equals the transcript blob byte for
// byte, so byte offsets computed here are valid offsets into the blob.
func ChunkSegments(segments []youtube.Segment) []Chunk {
	if len(segments) == 0 {
		return nil
	}

	var chunks []Chunk
	var buffer strings.Builder
	byteOffset := 0
	startTime := 0
	endTime := 0
	open := false

	flush := func() {
		text := buffer.String()
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			StartTime:  startTime,
			EndTime:    endTime,
			ByteOffset: byteOffset,
			ByteLength: len(text),
			Text:       text,
			Preview:    preview(text),
			Keywords:   keywords.Extract(text, keywords.MaxPerChunk),
		})
		byteOffset += len(text)
		buffer.Reset()
		open = false
	}

	for i, seg := range segments {
		if !open {
			startTime = seg.StartSeconds
			open = true
		}
		endTime = seg.EndSeconds

		buffer.WriteString("[")
		buffer.WriteString(FormatTimestamp(seg.StartSeconds))
		buffer.WriteString("] ")
		buffer.WriteString(seg.Text)
		buffer.WriteString("\n")

		natural := endsWithSentenceTerminator(seg.Text)
		size := buffer.Len()
		last := i == len(segments)-1

		if (natural && size >= chunkTargetBytes) || size >= chunkMaxBytes || last {
			flush()
		}
	}

	return chunks
}

// BuildTranscript reassembles the blob content from chunk texts
func BuildTranscript(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func endsWithSentenceTerminator(text string) bool {
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func preview(text string) string {
	if len(text) <= previewBytes {
		return text
	}
	// Cut on a rune boundary.
	cut := previewBytes
	for cut > 0 && (text[cut]&0xC0) == 0x80 {
		cut--
	}
	return text[:cut]
}
