package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("DUALLANG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DUALLANG_TEST_REDIS_ADDR not set")
	}
	key := "duallang:test:" + uuid.NewString()
	s, err := New(context.Background(), addr, "", 0, key)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), key).Err()
		_ = s.Close()
	})
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, map[string]string{"google:fr:hello": "bonjour"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["google:fr:hello"] != "bonjour" {
		t.Errorf("unexpected entries: %v", got)
	}
}

func TestSaveReplacesHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, map[string]string{"a": "1", "b": "2"})
	if err := s.Save(ctx, map[string]string{}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Load(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty hash, got %v", got)
	}
}

func TestNewUnreachable(t *testing.T) {
	_, err := New(context.Background(), "127.0.0.1:1", "", 0, "x")
	if err == nil {
		t.Error("expected connection error")
	}
}
