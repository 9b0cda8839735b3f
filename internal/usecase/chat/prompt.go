package chat

import (
	"fmt"
	"strings"

	"github.com/tubechat/tubechat/internal/usecase/pipeline"
	"github.com/tubechat/tubechat/internal/usecase/retrieval"
)

const personaPrompt = `You are a knowledgeable assistant that answers questions about video content using the transcript excerpts provided below. Ground every answer in the excerpts. When you reference a specific moment, cite its timestamp in [MM:SS] form so the viewer can jump to it. If the excerpts do not cover the question, say so rather than guessing.`

const citationRules = `Citation rules:
- Cite timestamps exactly as they appear in the excerpts, e.g. [12:34].
- Only cite timestamps that exist in the excerpts.
- Do not invent content that is not supported by the excerpts.`

// buildVideoContext renders retrieval results as timestamp-annotated
// segments for single-video chat.
func buildVideoContext(results []retrieval.Result) string {
	var sb strings.Builder
	sb.WriteString("Transcript excerpts:\n\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("[%s - %s]\n%s\n\n",
			pipeline.FormatTimestamp(r.Chunk.StartTime),
			pipeline.FormatTimestamp(r.Chunk.EndTime),
			r.FullText,
		))
	}
	return sb.String()
}

// buildChannelContext groups excerpts by video for channel-wide chat
func buildChannelContext(results []retrieval.Result) string {
	byVideo := make(map[string][]retrieval.Result)
	var order []string
	for _, r := range results {
		if _, seen := byVideo[r.Chunk.VideoID]; !seen {
			order = append(order, r.Chunk.VideoID)
		}
		byVideo[r.Chunk.VideoID] = append(byVideo[r.Chunk.VideoID], r)
	}

	var sb strings.Builder
	sb.WriteString("Transcript excerpts, grouped by video:\n\n")
	for _, videoID := range order {
		group := byVideo[videoID]
		title := group[0].VideoTitle
		if title == "" {
			title = videoID
		}
		sb.WriteString(fmt.Sprintf("### Video: %s\n", title))
		for _, r := range group {
			sb.WriteString(fmt.Sprintf("[%s - %s]\n%s\n\n",
				pipeline.FormatTimestamp(r.Chunk.StartTime),
				pipeline.FormatTimestamp(r.Chunk.EndTime),
				r.FullText,
			))
		}
	}
	return sb.String()
}

// degenerateContext is used when a target has no indexed chunks yet
func degenerateContext(title, description string) string {
	return fmt.Sprintf("No transcript excerpts are available yet. Video title: %s\nDescription: %s\n", title, description)
}

// systemPrompt composes the fixed persona, the citation rules and the
// context body
func systemPrompt(contextBody string) string {
	return personaPrompt + "\n\n" + citationRules + "\n\n" + contextBody
}
