package mcp

import (
	"fmt"
	"strings"

	"github.com/duallang/duallang/pkg/models"
)

func formatSummary(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %-10s %8s %8s %8s %12s %10s\n",
		"Engine", "Language", "Requests", "Failed", "Soft", "Characters", "Avg ms")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-8s %-10s %8d %8d %8d %12d %10d\n",
			r.Engine, r.TargetLanguage, r.RequestCount, r.Failures, r.SoftFailures, r.TotalChars, r.AvgLatencyMs)
	}
	return b.String()
}

func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}

func formatSettings(s models.Settings) string {
	key := "not set"
	if s.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("Engine:   %s\nLanguage: %s\nAPI key:  %s\n", s.Engine, s.TargetLanguage, key)
}

func formatTrackStatus(st models.TrackStatus) string {
	pct := float64(0)
	if st.Groups > 0 {
		pct = float64(st.Translated) / float64(st.Groups) * 100
	}
	return fmt.Sprintf("State:      %s\nActive:     %t\nTranslated: %d/%d (%.1f%%)\n",
		st.State, st.Active, st.Translated, st.Groups, pct)
}
