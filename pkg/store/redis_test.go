package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(RedisOptions{Addr: mr.Addr(), Prefix: "test"})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_BlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	if got, err := s.GetBlob(ctx, KeyCustomTriggers); err != nil || got != "" {
		t.Fatalf("missing blob should read as empty, got %q err %v", got, err)
	}

	if err := s.SetBlob(ctx, KeyCustomTriggers, `[{"emotion":"test"}]`); err != nil {
		t.Fatalf("set blob: %v", err)
	}
	got, err := s.GetBlob(ctx, KeyCustomTriggers)
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if got != `[{"emotion":"test"}]` {
		t.Fatalf("blob = %q", got)
	}

	if err := s.DeleteBlob(ctx, KeyCustomTriggers); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if got, _ := s.GetBlob(ctx, KeyCustomTriggers); got != "" {
		t.Fatalf("deleted blob should read as empty, got %q", got)
	}
}

func TestRedisStore_MessageHistoryTrimmed(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedisStore(RedisOptions{Addr: mr.Addr(), Prefix: "test", MaxHistory: 3})
	defer s.Close()

	session := "discord:42"
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		if err := s.AppendMessage(ctx, Message{SessionKey: session, Role: "user", Content: content}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.RecentMessages(ctx, session, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected history trimmed to 3, got %d", len(msgs))
	}
	if msgs[0].Content != "c" || msgs[2].Content != "e" {
		t.Fatalf("unexpected retained messages: %#v", msgs)
	}

	if err := s.ClearSession(ctx, session); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, _ = s.RecentMessages(ctx, session, 10)
	if len(msgs) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(msgs))
	}
}
