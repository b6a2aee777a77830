package subtitle

import (
	"fmt"
	"strings"

	"github.com/duallang/duallang/pkg/models"
)

// FormatVTT renders groups as WebVTT. With bilingual set, translated groups
// carry the translation on a second line.
func FormatVTT(groups []models.SentenceGroup, bilingual bool) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, g := range groups {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatTimestamp(g.StartMs), formatTimestamp(g.EndMs)))
		switch {
		case g.Translated() && bilingual:
			sb.WriteString(g.OriginalSentence + "\n" + *g.TranslatedSentence)
		case g.Translated():
			sb.WriteString(*g.TranslatedSentence)
		default:
			sb.WriteString(g.OriginalSentence)
		}
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func formatTimestamp(totalMs int64) string {
	if totalMs < 0 {
		totalMs = 0
	}
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
