package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/duallang/duallang/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndQuery(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.UsageRecord{
		RequestID:      "req-1",
		Engine:         models.EngineGemini,
		TargetLanguage: "ja",
		Characters:     120,
		Outcome:        models.OutcomeOK,
		LatencyMs:      340,
		CreatedAt:      now,
	}
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := tr.QueryByEngine(ctx, models.EngineGemini, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.RequestID != "req-1" || r.Characters != 120 || r.Outcome != models.OutcomeOK || r.Engine != models.EngineGemini {
		t.Errorf("unexpected record: %+v", r)
	}

	records, _ = tr.QueryByEngine(ctx, models.EngineGoogle, now.Add(-time.Minute))
	if len(records) != 0 {
		t.Errorf("expected no google records, got %d", len(records))
	}
}

func TestTotalChars(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for j := 0; j < 3; j++ {
		_ = tr.Record(ctx, models.UsageRecord{
			Engine: models.EngineGoogle, TargetLanguage: "fr",
			Characters: 100, Outcome: models.OutcomeOK, CreatedAt: now,
		})
	}

	total, err := tr.TotalChars(ctx, models.EngineGoogle, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 300 {
		t.Errorf("expected 300, got %d", total)
	}

	total, _ = tr.TotalChars(ctx, models.EngineGoogle, now.Add(time.Minute))
	if total != 0 {
		t.Errorf("expected 0 for future window, got %d", total)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	records := []models.UsageRecord{
		{Engine: models.EngineGemini, TargetLanguage: "ja", Characters: 10, Outcome: models.OutcomeOK, LatencyMs: 100},
		{Engine: models.EngineGemini, TargetLanguage: "ja", Characters: 20, Outcome: models.OutcomeError, LatencyMs: 300},
		{Engine: models.EngineGemini, TargetLanguage: "ja", Characters: 30, Outcome: models.OutcomeSoft, LatencyMs: 200},
		{Engine: models.EngineGoogle, TargetLanguage: "fr", Characters: 5, Outcome: models.OutcomeOK, LatencyMs: 50},
	}
	for _, r := range records {
		r.CreatedAt = now
		if err := tr.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	g := summaries[0]
	if g.Engine != models.EngineGemini || g.RequestCount != 3 || g.Failures != 1 || g.SoftFailures != 1 {
		t.Errorf("unexpected gemini summary: %+v", g)
	}
	if g.TotalChars != 60 || g.AvgLatencyMs != 200 {
		t.Errorf("unexpected gemini totals: %+v", g)
	}

	filtered, err := tr.Summary(ctx, models.EngineGoogle)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].TargetLanguage != "fr" {
		t.Errorf("unexpected filtered summary: %+v", filtered)
	}
}
