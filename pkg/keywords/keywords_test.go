package keywords

import (
	"testing"
)

func TestExtractDropsShortAndStopWords(t *testing.T) {
	got := Extract("The cat and the dog ran into the garden", 10)
	for _, kw := range got {
		if len(kw) <= 3 {
			t.Fatalf("short token %q survived extraction", kw)
		}
		if kw == "into" {
			t.Fatalf("stop word %q survived extraction", kw)
		}
	}
	if !contains(got, "garden") {
		t.Fatalf("expected \"garden\" in %v", got)
	}
}

func TestExtractLowercasesAndStripsPunctuation(t *testing.T) {
	got := Extract("Kubernetes: CONTAINERS, orchestration!", 10)
	want := []string{"kubernetes", "containers", "orchestration"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExtractDeduplicatesAndCaps(t *testing.T) {
	text := "alpha alpha beta beta gamma delta epsilon zeta theta kappa lambda sigma omega extra1 extra2"
	got := Extract(text, 10)
	if len(got) != 10 {
		t.Fatalf("expected cap of 10 keywords, got %d: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, kw := range got {
		if seen[kw] {
			t.Fatalf("duplicate keyword %q", kw)
		}
		seen[kw] = true
	}
}

func TestExtractQueryDropsInterrogatives(t *testing.T) {
	got := ExtractQuery("What does the speaker think about quantum computing?")
	if contains(got, "what") {
		t.Fatalf("interrogative survived query extraction: %v", got)
	}
	if !contains(got, "quantum") || !contains(got, "computing") {
		t.Fatalf("expected content words in %v", got)
	}
}

func TestExtractQueryLargerSetThanChunkSide(t *testing.T) {
	// "which" passes chunk-side extraction but not query-side.
	chunkSide := Extract("which turbine spins fastest", 10)
	querySide := ExtractQuery("which turbine spins fastest")
	if !contains(chunkSide, "which") {
		t.Fatalf("chunk-side extraction should keep \"which\": %v", chunkSide)
	}
	if contains(querySide, "which") {
		t.Fatalf("query-side extraction should drop \"which\": %v", querySide)
	}
}

func TestMatchesBidirectionalSubstring(t *testing.T) {
	query := []string{"engine"}
	chunk := []string{"engineering"}
	if Matches(query, chunk) != 1 {
		t.Fatalf("query keyword inside chunk keyword should match")
	}
	if Matches(chunk, query) != 1 {
		t.Fatalf("chunk keyword containing query keyword should match in reverse")
	}
	if Matches([]string{"rocket"}, []string{"turbine"}) != 0 {
		t.Fatalf("unrelated keywords must not match")
	}
}

func TestMatchesCountsPerQueryKeyword(t *testing.T) {
	query := []string{"solar", "panel", "grid"}
	chunk := []string{"solar", "panels"}
	if got := Matches(query, chunk); got != 2 {
		t.Fatalf("expected 2 hits, got %d", got)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
