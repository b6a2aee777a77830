package subtitle

import (
	"strings"
	"testing"

	"github.com/duallang/duallang/pkg/models"
)

func TestFormatVTT(t *testing.T) {
	tr := "Bonjour"
	groups := []models.SentenceGroup{
		{StartMs: 0, EndMs: 1500, OriginalSentence: "Hello", TranslatedSentence: &tr},
		{StartMs: 3723004, EndMs: 3725000, OriginalSentence: "Later"},
	}

	got := FormatVTT(groups, true)
	want := "WEBVTT\n\n1\n00:00:00.000 --> 00:00:01.500\nHello\nBonjour\n\n2\n01:02:03.004 --> 01:02:05.000\nLater\n\n"
	if got != want {
		t.Errorf("unexpected bilingual VTT:\n%s", got)
	}

	mono := FormatVTT(groups, false)
	if !strings.Contains(mono, "00:00:01.500\nBonjour\n\n") {
		t.Errorf("expected translation only, got:\n%s", mono)
	}
}
