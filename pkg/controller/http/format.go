package http

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
)

const listSnippetRunes = 60

// formatNoteList renders a compact listing: one line per note, newest
// first, each with its reference ID, creation time, and a transcript
// snippet.
func formatNoteList(title string, notes []*model.Note) string {
	if len(notes) == 0 {
		return "No entries found. Send me a voice note to create one!"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", title)
	for _, n := range notes {
		fmt.Fprintf(&sb, "• %s — %s — %s\n",
			n.ReferenceID,
			n.CreatedAt.Format("2006-01-02 15:04"),
			snippet(n.Transcript, listSnippetRunes),
		)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatNote renders the full entry.
func formatNote(n *model.Note) string {
	if n == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 %s — %s\n", n.ReferenceID, n.CreatedAt.Format("2006-01-02 15:04"))
	if n.AudioDuration > 0 {
		fmt.Fprintf(&sb, "Audio: %.0fs\n", n.AudioDuration)
	}
	fmt.Fprintf(&sb, "\nTranscription:\n%s\n\nReflection:\n%s", n.Transcript, n.Reflection)

	return sb.String()
}

// snippet returns the first maxRunes runes on a single line.
func snippet(text string, maxRunes int) string {
	oneLine := strings.Join(strings.Fields(text), " ")
	runes := []rune(oneLine)
	if len(runes) <= maxRunes {
		return oneLine
	}
	return string(runes[:maxRunes]) + "..."
}
