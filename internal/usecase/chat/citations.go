package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// timestampPattern matches timestamps the model emits in its answers,
// e.g. "[12:34]", "(1:02:45)".
var timestampPattern = regexp.MustCompile(`[\[(](\d{1,2}:)?\d{1,2}:\d{2}[\])]`)

// ExtractCitations scans an assistant response for timestamp references
// and returns one citation per match, in order of appearance.
func ExtractCitations(response string) []entities.Citation {
	matches := timestampPattern.FindAllString(response, -1)
	if len(matches) == 0 {
		return nil
	}

	citations := make([]entities.Citation, 0, len(matches))
	for _, m := range matches {
		raw := strings.Trim(m, "[]()")
		citations = append(citations, entities.Citation{
			Timestamp: raw,
			Seconds:   parseTimestamp(raw),
			Text:      m,
		})
	}
	return citations
}

// parseTimestamp converts "MM:SS" or "H:MM:SS" to seconds
func parseTimestamp(raw string) int {
	parts := strings.Split(raw, ":")
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// MergeCitations appends extracted citations after context citations
func MergeCitations(context, extracted []entities.Citation) []entities.Citation {
	if len(context) == 0 {
		return extracted
	}
	if len(extracted) == 0 {
		return context
	}
	out := make([]entities.Citation, 0, len(context)+len(extracted))
	out = append(out, context...)
	out = append(out, extracted...)
	return out
}
