package learner

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/omokage-app/omokage/pkg/profiler"
	"github.com/omokage-app/omokage/pkg/store"
)

func newTestStore(t *testing.T) store.StateStore {
	t.Helper()
	st, err := store.NewSQLiteStore(t.TempDir() + "/learner.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestObserveAndRecall(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)))

	l.Observe([]Turn{{User: "好きな映画は?", Bot: "アクション映画が好き"}})

	got, ok := l.Recall("最近いい映画あった?")
	if !ok {
		t.Fatal("Recall() found no learned response")
	}
	if got != "アクション映画が好き" {
		t.Fatalf("Recall() = %q, want %q", got, "アクション映画が好き")
	}
}

func TestRecallNoMatch(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)))
	l.Observe([]Turn{{User: "映画 最高", Bot: "面白かったね"}})

	if got, ok := l.Recall("天気どうかな"); ok {
		t.Fatalf("Recall() = %q, want no match", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"好きな映画は?", []string{"好き", "映画"}},
		// Particles split inside words too; fragments >=2 runes survive.
		{"ありがとう", []string{"あり", "とう"}},
		{"は が を に", nil},
		{"a the is", nil},
		{"犬 と 猫 が 好き", []string{"好き"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := ExtractKeywords(tt.text)
		if len(got) != len(tt.want) {
			t.Fatalf("ExtractKeywords(%q) = %v, want %v", tt.text, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("ExtractKeywords(%q) = %v, want %v", tt.text, got, tt.want)
			}
		}
	}
}

func TestSetSemantics(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)))

	for i := 0; i < 3; i++ {
		l.Observe([]Turn{{User: "映画 見た", Bot: "面白かった?"}})
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if n := len(l.assoc["映画"]); n != 1 {
		t.Fatalf("duplicate observations stored %d responses, want 1", n)
	}
}

func TestPersistsAcrossReload(t *testing.T) {
	st := newTestStore(t)

	l := New(st, rand.New(rand.NewSource(1)))
	l.Observe([]Turn{{User: "旅行 行きたい", Bot: "どこに行きたいの？"}})

	reloaded := New(st, rand.New(rand.NewSource(2)))
	got, ok := reloaded.Recall("旅行の計画してる")
	if !ok || got != "どこに行きたいの？" {
		t.Fatalf("Recall() after reload = %q, %v", got, ok)
	}
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	st := newTestStore(t)
	if err := st.SetBlob(context.Background(), store.KeyLearnedPatterns, "{not json"); err != nil {
		t.Fatalf("SetBlob() error = %v", err)
	}

	l := New(st, rand.New(rand.NewSource(1)))
	if stats := l.Stats(); stats.KeywordCount != 0 {
		t.Fatalf("KeywordCount = %d, want 0", stats.KeywordCount)
	}
}

func TestWindowEvictionKeepsAssociations(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)), WithWindowSize(5))

	l.Observe([]Turn{{User: "音楽 好き", Bot: "どんな曲を聴くの？"}})
	for i := 0; i < 10; i++ {
		l.Observe([]Turn{{User: "そう", Bot: "うん"}})
	}

	if stats := l.Stats(); stats.WindowCount != 5 {
		t.Fatalf("WindowCount = %d, want 5", stats.WindowCount)
	}
	if _, ok := l.Recall("音楽かけて"); !ok {
		t.Fatal("eviction retracted a learned association")
	}
}

func TestIntegrateProfile(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)))

	l.IntegrateProfile(profiler.Profile{
		CommonPhrases:      []string{"ありがとう"},
		FavoriteTopics:     []string{"映画"},
		CommunicationStyle: "丁寧で礼儀正しい口調",
	})

	got, ok := l.Recall("本当にありがとう")
	if !ok {
		t.Fatal("Recall() found no seeded phrase response")
	}
	want := map[string]bool{"どういたしまして": true, "喜んでもらえて嬉しいよ": true, "いつでも力になるからね": true}
	if !want[got] {
		t.Fatalf("Recall() = %q, not a seeded phrase response", got)
	}

	got, ok = l.Recall("映画どうだった")
	if !ok {
		t.Fatal("Recall() found no seeded topic response")
	}
	if strings.Contains(got, "だね") && !strings.Contains(got, "ですね") {
		t.Fatalf("Recall() = %q, want polite-style adjustment", got)
	}
}

func TestPrune(t *testing.T) {
	l := New(newTestStore(t), rand.New(rand.NewSource(1)))

	l.mu.Lock()
	l.assoc = map[string][]string{
		"映画": {"a", "b", "c", "d"},
		"音楽": {"x"},
		"旅行": {"y", "z"},
	}
	l.mu.Unlock()

	l.Prune(2, 2)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.assoc) != 2 {
		t.Fatalf("keywords after prune = %d, want 2", len(l.assoc))
	}
	if _, ok := l.assoc["音楽"]; ok {
		t.Fatal("prune kept the smallest keyword over larger ones")
	}
	got := l.assoc["映画"]
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("responses after prune = %v, want [c d]", got)
	}
}

func TestClear(t *testing.T) {
	st := newTestStore(t)
	l := New(st, rand.New(rand.NewSource(1)))
	l.Observe([]Turn{{User: "映画 見た", Bot: "面白かった?"}})

	l.Clear()

	if stats := l.Stats(); stats.KeywordCount != 0 || stats.WindowCount != 0 {
		t.Fatalf("Stats() after clear = %+v", stats)
	}
	reloaded := New(st, rand.New(rand.NewSource(2)))
	if stats := reloaded.Stats(); stats.KeywordCount != 0 {
		t.Fatalf("persisted state survived Clear(), KeywordCount = %d", stats.KeywordCount)
	}
}
