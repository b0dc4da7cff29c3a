package emotion

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omokage-app/omokage/pkg/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewEngine(st, rand.New(rand.NewSource(1))), st
}

func TestDetect_BuiltinThanks(t *testing.T) {
	e, _ := newTestEngine(t)

	trigger := e.Detect("ありがとう")
	if trigger == nil {
		t.Fatal("expected thanks trigger to match")
	}
	if trigger.Emotion != "ありがとう" {
		t.Fatalf("emotion = %q, want ありがとう", trigger.Emotion)
	}
}

func TestDetect_NoMatchIsNil(t *testing.T) {
	e, _ := newTestEngine(t)

	if trigger := e.Detect("天気の話"); trigger != nil {
		t.Fatalf("expected nil for emotion-free text, got %q", trigger.Emotion)
	}
}

func TestDetect_CaseInsensitive(t *testing.T) {
	e, _ := newTestEngine(t)
	e.AddCustom(NewTrigger("テスト", "🧪", []string{"HELLO"}, []string{"こんにちは"}, nil, 5))

	if trigger := e.Detect("well hello there"); trigger == nil || trigger.Emotion != "テスト" {
		t.Fatal("keyword match must be case-insensitive")
	}
}

func TestDetect_CustomHasPriority(t *testing.T) {
	e, _ := newTestEngine(t)

	// Reuses a built-in keyword; the custom trigger must win.
	e.AddCustom(NewTrigger("感謝2", "✨", []string{"ありがとう"}, []string{"こちらこそ"}, nil, 5))

	trigger := e.Detect("ありがとう")
	if trigger == nil || trigger.Emotion != "感謝2" {
		t.Fatalf("custom trigger must shadow built-ins, got %+v", trigger)
	}
}

func TestNewTrigger_ClampsIntensity(t *testing.T) {
	low := NewTrigger("a", "", []string{"x"}, nil, nil, 0)
	if low.Intensity != 1 {
		t.Errorf("intensity 0 should clamp to 1, got %d", low.Intensity)
	}
	high := NewTrigger("b", "", []string{"x"}, nil, nil, 15)
	if high.Intensity != 10 {
		t.Errorf("intensity 15 should clamp to 10, got %d", high.Intensity)
	}
	mid := NewTrigger("c", "", []string{"x"}, nil, nil, 7)
	if mid.Intensity != 7 {
		t.Errorf("intensity 7 should pass through, got %d", mid.Intensity)
	}
}

func TestRespond_MembershipAndFollowUp(t *testing.T) {
	e, _ := newTestEngine(t)
	trigger := e.Detect("疲れたな")
	if trigger == nil {
		t.Fatal("expected tired trigger")
	}

	responses := map[string]bool{}
	for _, r := range trigger.Responses {
		responses[r] = true
	}
	followUps := map[string]bool{}
	for _, f := range trigger.FollowUps {
		followUps[f] = true
	}

	for i := 0; i < 50; i++ {
		got := e.Respond(trigger)
		base, rest, hasFollowUp := strings.Cut(got, " ")
		if !responses[base] {
			t.Fatalf("response base %q is not a trigger response", base)
		}
		if hasFollowUp && !followUps[rest] {
			t.Fatalf("follow-up %q is not a trigger follow-up", rest)
		}
	}
}

func TestAggregate_DominantEmotion(t *testing.T) {
	e, _ := newTestEngine(t)

	analysis := e.Aggregate([]string{
		"今日は疲れた",
		"ほんとに疲れたよ",
		"でも嬉しいこともあった",
	})

	if analysis.DominantEmotion != "疲れた" {
		t.Fatalf("dominant = %q, want 疲れた", analysis.DominantEmotion)
	}
	if analysis.EmotionCounts["疲れた"] != 2 {
		t.Errorf("疲れた count = %d, want 2", analysis.EmotionCounts["疲れた"])
	}
	if analysis.AverageIntensity < 1 || analysis.AverageIntensity > 10 {
		t.Errorf("average intensity out of range: %d", analysis.AverageIntensity)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	e, _ := newTestEngine(t)

	analysis := e.Aggregate(nil)
	if analysis.DominantEmotion != "" || analysis.AverageIntensity != 0 {
		t.Fatalf("expected zero analysis for no input, got %+v", analysis)
	}
}

func TestCustomTriggers_PersistAcrossRestart(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer st.Close()

	e1 := NewEngine(st, rand.New(rand.NewSource(1)))
	added := NewTrigger("ねむい", "🌙", []string{"ねむい"}, []string{"もう寝よう"}, nil, 4)
	e1.AddCustom(added)

	e2 := NewEngine(st, rand.New(rand.NewSource(1)))
	trigger := e2.Detect("ああねむい")
	if trigger == nil || trigger.ID != added.ID {
		t.Fatalf("custom trigger did not survive engine reload: %+v", trigger)
	}

	if !e2.RemoveCustom(added.ID) {
		t.Fatal("remove should report success")
	}
	e3 := NewEngine(st, rand.New(rand.NewSource(1)))
	if trigger := e3.Detect("ああねむい"); trigger != nil {
		t.Fatalf("removed trigger still detected: %+v", trigger)
	}
}

func TestEngine_CorruptStateDegradesToBuiltins(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer st.Close()

	if err := st.SetBlob(context.Background(), store.KeyCustomTriggers, "{not json"); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}

	e := NewEngine(st, rand.New(rand.NewSource(1)))
	if len(e.CustomTriggers()) != 0 {
		t.Fatal("corrupt state should load as empty custom set")
	}
	if e.Detect("ありがとう") == nil {
		t.Fatal("built-ins must still function after corrupt custom state")
	}
}
