package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/duallang/duallang/pkg/cache"
	"github.com/duallang/duallang/pkg/models"
)

func newTestStore(t *testing.T, dbPath string) *Store {
	t.Helper()
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache_test.db"))

	entries := map[string]string{
		"google:fr:hello": "bonjour",
		"gemini:ja:cat":   "猫",
	}
	if err := s.Save(ctx, entries); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["google:fr:hello"] != "bonjour" || got["gemini:ja:cat"] != "猫" {
		t.Errorf("unexpected entries: %v", got)
	}
}

func TestSaveReplacesTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache_test.db"))

	_ = s.Save(ctx, map[string]string{"a": "1", "b": "2"})
	if err := s.Save(ctx, map[string]string{"c": "3"}); err != nil {
		t.Fatal(err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry, got %d", count)
	}
}

func TestSaveEmptyClears(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache_test.db"))

	_ = s.Save(ctx, map[string]string{"a": "1"})
	if err := s.Save(ctx, map[string]string{}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Load(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty table, got %v", got)
	}
}

func TestCacheSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")

	first, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := cache.New(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, models.EngineGoogle, "fr", "hello", "bonjour"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	second := newTestStore(t, dbPath)
	reopened, err := cache.New(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := reopened.Get(models.EngineGoogle, "fr", "hello")
	if !ok || v != "bonjour" {
		t.Errorf("expected bonjour after restart, got %q (ok=%v)", v, ok)
	}
}
