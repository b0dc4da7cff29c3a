package memorydb

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/omokage-app/omokage/pkg/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewDB(st, rand.New(rand.NewSource(1)))
}

func TestRecall_PrimaryKeyword(t *testing.T) {
	d := newTestDB(t)

	got, ok := d.Recall("誕生日おめでとう")
	if !ok {
		t.Fatal("expected birthday memory to match")
	}
	valid := map[string]bool{}
	for _, m := range builtinMemories {
		if m.Keyword == "誕生日" {
			for _, r := range m.Responses {
				valid[r] = true
			}
		}
	}
	if !valid[got] {
		t.Fatalf("response %q is not one of the birthday memory responses", got)
	}
}

func TestRecall_RelatedWord(t *testing.T) {
	d := newTestDB(t)

	if _, ok := d.Recall("ホテルに泊まったよ"); !ok {
		t.Fatal("related word ホテル should recall the travel memory")
	}
}

func TestRecall_NoMatch(t *testing.T) {
	d := newTestDB(t)

	if got, ok := d.Recall("数学の宿題が多い"); ok {
		t.Fatalf("expected no recall, got %q", got)
	}
}

func TestAddCustom_VisibleForProcessLifetime(t *testing.T) {
	d := newTestDB(t)

	d.AddCustom("花火", []string{"夏祭り"}, []string{"あの花火、きれいだったね"}, 0.9)

	got, ok := d.Recall("夏祭りに行きたい")
	if !ok || got != "あの花火、きれいだったね" {
		t.Fatalf("custom memory not recalled: %q ok=%v", got, ok)
	}
}

func TestAddCustom_PersistsAcrossReload(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer st.Close()

	d1 := NewDB(st, rand.New(rand.NewSource(1)))
	d1.AddCustom("海", nil, []string{"海、また行こうね"}, 0.5)

	d2 := NewDB(st, rand.New(rand.NewSource(1)))
	got, ok := d2.Recall("海が見たい")
	if !ok || got != "海、また行こうね" {
		t.Fatalf("custom memory did not survive reload: %q ok=%v", got, ok)
	}
}

func TestAddCustom_ClampsWeight(t *testing.T) {
	d := newTestDB(t)

	entry := d.AddCustom("山", nil, []string{"登ったね"}, 1.5)
	if entry.EmotionalWeight != 1.0 {
		t.Errorf("weight 1.5 should clamp to 1.0, got %v", entry.EmotionalWeight)
	}
	entry = d.AddCustom("川", nil, []string{"泳いだね"}, -0.2)
	if entry.EmotionalWeight != 0 {
		t.Errorf("weight -0.2 should clamp to 0, got %v", entry.EmotionalWeight)
	}
}

func TestImportant_Threshold(t *testing.T) {
	if !(Keyword{EmotionalWeight: 0.9}).Important() {
		t.Error("0.9 should be important")
	}
	if (Keyword{EmotionalWeight: 0.8}).Important() {
		t.Error("0.8 is not strictly above the threshold")
	}
}

func TestSearch(t *testing.T) {
	d := newTestDB(t)

	hits := d.Search("旅")
	if len(hits) == 0 {
		t.Fatal("expected search hit for 旅")
	}
	found := false
	for _, h := range hits {
		if h.Keyword == "旅行" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 旅行 entry among hits: %+v", hits)
	}
}
