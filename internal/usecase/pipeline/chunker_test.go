package pipeline

import (
	"strings"
	"testing"

	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
)

func segment(start, end int, text string) youtube.Segment {
	return youtube.Segment{StartSeconds: start, EndSeconds: end, Text: text}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{754, "12:34"},
		{6000, "100:00"}, // minutes exceed two digits past 100 minutes
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestChunkSegmentsEmpty(t *testing.T) {
	if chunks := ChunkSegments(nil); chunks != nil {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunkSegmentsSingle(t *testing.T) {
	chunks := ChunkSegments([]youtube.Segment{segment(5, 9, "hello world.")})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != "[00:05] hello world.\n" {
		t.Fatalf("unexpected chunk text %q", c.Text)
	}
	if c.StartTime != 5 || c.EndTime != 9 {
		t.Fatalf("unexpected time bounds %d-%d", c.StartTime, c.EndTime)
	}
	if c.ByteOffset != 0 || c.ByteLength != len(c.Text) {
		t.Fatalf("unexpected byte accounting offset=%d length=%d", c.ByteOffset, c.ByteLength)
	}
}

func TestChunkSegmentsCutOnNaturalBoundary(t *testing.T) {
	// Each segment is ~120 bytes with a sentence terminator; the soft cut
	// at 1000 bytes should fire on the segment that crosses it.
	long := strings.Repeat("word ", 22) + "done."
	var segments []youtube.Segment
	for i := 0; i < 20; i++ {
		segments = append(segments, segment(i*10, i*10+9, long))
	}

	chunks := ChunkSegments(segments)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if c.ByteLength < chunkTargetBytes {
			t.Fatalf("chunk %d cut below the soft boundary: %d bytes", i, c.ByteLength)
		}
		if c.ByteLength >= chunkMaxBytes {
			t.Fatalf("chunk %d exceeded the hard boundary: %d bytes", i, c.ByteLength)
		}
	}
}

func TestChunkSegmentsHardCutWithoutPunctuation(t *testing.T) {
	// No sentence terminators anywhere: only the hard 2000-byte cut and
	// the final segment may close chunks.
	filler := strings.Repeat("na ", 50)
	var segments []youtube.Segment
	for i := 0; i < 30; i++ {
		segments = append(segments, segment(i, i+1, filler))
	}

	chunks := ChunkSegments(segments)
	for i, c := range chunks[:len(chunks)-1] {
		if c.ByteLength < chunkMaxBytes {
			t.Fatalf("chunk %d closed early without punctuation: %d bytes", i, c.ByteLength)
		}
	}
}

func TestChunkSegmentsByteAccounting(t *testing.T) {
	var segments []youtube.Segment
	for i := 0; i < 40; i++ {
		segments = append(segments, segment(i*7, i*7+6, strings.Repeat("alpha beta ", 8)+"end."))
	}

	chunks := ChunkSegments(segments)
	transcript := BuildTranscript(chunks)

	offset := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if c.ByteOffset != offset {
			t.Fatalf("chunk %d offset = %d, want %d", i, c.ByteOffset, offset)
		}
		if transcript[c.ByteOffset:c.ByteOffset+c.ByteLength] != c.Text {
			t.Fatalf("chunk %d text does not match blob slice", i)
		}
		offset += c.ByteLength
	}
	if offset != len(transcript) {
		t.Fatalf("cumulative length %d != blob length %d", offset, len(transcript))
	}
}

func TestChunkSegmentsDeterminism(t *testing.T) {
	var segments []youtube.Segment
	for i := 0; i < 25; i++ {
		segments = append(segments, segment(i*4, i*4+3, strings.Repeat("data point ", 12)+"ok."))
	}

	first := ChunkSegments(segments)
	second := ChunkSegments(segments)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text || first[i].ByteOffset != second[i].ByteOffset {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkTimesAreNonDecreasing(t *testing.T) {
	var segments []youtube.Segment
	for i := 0; i < 50; i++ {
		segments = append(segments, segment(i*3, i*3+2, strings.Repeat("steady stream ", 10)+"fin."))
	}

	chunks := ChunkSegments(segments)
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartTime < chunks[i-1].StartTime {
			t.Fatalf("start times decrease at chunk %d", i)
		}
	}
}

func TestChunkKeywords(t *testing.T) {
	chunks := ChunkSegments([]youtube.Segment{
		segment(0, 4, "Quantum entanglement explains correlated particle measurements."),
	})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	found := false
	for _, kw := range chunks[0].Keywords {
		if kw == "quantum" {
			found = true
		}
		if len(kw) <= 3 {
			t.Fatalf("keyword %q shorter than policy minimum", kw)
		}
	}
	if !found {
		t.Fatalf("expected keyword \"quantum\" in %v", chunks[0].Keywords)
	}
}
