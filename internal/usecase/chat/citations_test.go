package chat

import (
	"testing"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

func TestExtractCitationsBasic(t *testing.T) {
	response := "The speaker covers this at [12:34] and returns to it later (45:06)."
	citations := ExtractCitations(response)
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Timestamp != "12:34" || citations[0].Seconds != 754 {
		t.Fatalf("unexpected first citation %+v", citations[0])
	}
	if citations[1].Timestamp != "45:06" || citations[1].Seconds != 2706 {
		t.Fatalf("unexpected second citation %+v", citations[1])
	}
}

func TestExtractCitationsHourForm(t *testing.T) {
	citations := ExtractCitations("Deep dive begins at [1:02:45].")
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}
	if citations[0].Seconds != 3765 {
		t.Fatalf("expected 3765 seconds, got %d", citations[0].Seconds)
	}
}

func TestExtractCitationsEveryMatchOnce(t *testing.T) {
	// The same timestamp mentioned twice yields two entries, in order.
	citations := ExtractCitations("See [05:00], then again [05:00].")
	if len(citations) != 2 {
		t.Fatalf("expected one citation per match, got %d", len(citations))
	}
	for _, c := range citations {
		if c.Seconds != 300 {
			t.Fatalf("expected 300 seconds, got %d", c.Seconds)
		}
	}
}

func TestExtractCitationsNoMatches(t *testing.T) {
	if citations := ExtractCitations("No timestamps here, just 1234 numbers."); citations != nil {
		t.Fatalf("expected nil, got %v", citations)
	}
}

func TestMergeCitations(t *testing.T) {
	context := []entities.Citation{{VideoID: "abc", StartTime: 10, EndTime: 20, Text: "excerpt"}}
	extracted := []entities.Citation{{Timestamp: "00:15", Seconds: 15}}

	merged := MergeCitations(context, extracted)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged citations, got %d", len(merged))
	}
	if merged[0].VideoID != "abc" || merged[1].Seconds != 15 {
		t.Fatalf("context citations must precede extracted ones: %+v", merged)
	}

	if got := MergeCitations(nil, extracted); len(got) != 1 {
		t.Fatalf("nil context should return extracted")
	}
	if got := MergeCitations(context, nil); len(got) != 1 {
		t.Fatalf("nil extracted should return context")
	}
}
