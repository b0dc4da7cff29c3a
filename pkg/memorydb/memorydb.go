// Package memorydb recalls shared "memories" by keyword association.
// It is separate from the emotion rules: entries represent remembered
// episodes rather than emotional intents.
package memorydb

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/omokage-app/omokage/pkg/logger"
	"github.com/omokage-app/omokage/pkg/store"
)

// importantWeight marks entries treated as important memories. The
// weight documents importance; it does not alter response selection.
const importantWeight = 0.8

// Keyword is one memory entry: a primary keyword, related words, and
// the responses recalled when any of them appear in a message.
type Keyword struct {
	ID              string   `json:"id"`
	Keyword         string   `json:"keyword"`
	RelatedWords    []string `json:"related_words"`
	Responses       []string `json:"responses"`
	EmotionalWeight float64  `json:"emotional_weight"` // 0.0-1.0
}

// Important reports whether this entry counts as an important memory.
func (k Keyword) Important() bool {
	return k.EmotionalWeight > importantWeight
}

var builtinMemories = []Keyword{
	{
		ID:           "builtin-birthday",
		Keyword:      "誕生日",
		RelatedWords: []string{"バースデー", "お祝い", "ケーキ", "プレゼント"},
		Responses: []string{
			"あの誕生日は特別だったね",
			"君の笑顔が忘れられない",
			"また一緒にお祝いしたいな",
			"素敵な時間だった",
		},
		EmotionalWeight: 0.9,
	},
	{
		ID:           "builtin-travel",
		Keyword:      "旅行",
		RelatedWords: []string{"旅", "観光", "電車", "飛行機", "ホテル"},
		Responses: []string{
			"あの旅行は楽しかったね",
			"一緒に見た景色、覚えてる",
			"また行きたいね",
			"君との旅は最高だった",
		},
		EmotionalWeight: 0.8,
	},
	{
		ID:           "builtin-cooking",
		Keyword:      "料理",
		RelatedWords: []string{"ご飯", "食事", "レストラン", "手料理", "美味しい"},
		Responses: []string{
			"君の作った料理、美味しかった",
			"一緒に食べた時間が懐かしい",
			"また一緒に食事したいな",
			"あの味が忘れられない",
		},
		EmotionalWeight: 0.7,
	},
	{
		ID:           "builtin-movies",
		Keyword:      "映画",
		RelatedWords: []string{"シネマ", "ドラマ", "アニメ", "映画館"},
		Responses: []string{
			"あの映画、一緒に見たね",
			"君の反応が面白かった",
			"またおすすめがあったら教えて",
			"楽しい時間だった",
		},
		EmotionalWeight: 0.6,
	},
}

// DB is the keyword-to-memory recall table: a fixed built-in set plus
// custom entries persisted write-through to the state store.
type DB struct {
	store  store.StateStore
	rng    *rand.Rand
	mu     sync.RWMutex
	custom []Keyword
}

// NewDB loads custom memories from the store; missing or corrupt state
// degrades to the built-in set only.
func NewDB(st store.StateStore, rng *rand.Rand) *DB {
	d := &DB{store: st, rng: rng}
	d.loadCustom()
	return d
}

func (d *DB) loadCustom() {
	if d.store == nil {
		return
	}
	raw, err := d.store.GetBlob(context.Background(), store.KeyCustomMemories)
	if err != nil {
		logger.WarnCF("memorydb", "Failed to load custom memories", map[string]any{"error": err.Error()})
		return
	}
	if raw == "" {
		return
	}
	var custom []Keyword
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		logger.WarnCF("memorydb", "Corrupt custom memory state, starting empty", map[string]any{"error": err.Error()})
		return
	}
	d.custom = custom
}

func (d *DB) persistCustom() {
	if d.store == nil {
		return
	}
	data, err := json.Marshal(d.custom)
	if err != nil {
		logger.ErrorCF("memorydb", "Failed to encode custom memories", map[string]any{"error": err.Error()})
		return
	}
	if err := d.store.SetBlob(context.Background(), store.KeyCustomMemories, string(data)); err != nil {
		logger.ErrorCF("memorydb", "Failed to persist custom memories", map[string]any{"error": err.Error()})
	}
}

// Recall returns a memory response when text mentions an entry's
// keyword or any related word (case-insensitive substring). The first
// matching entry wins; selection within the entry is uniform random.
func (d *DB) Recall(text string) (string, bool) {
	lower := strings.ToLower(text)

	for _, memory := range d.All() {
		if !memoryMatches(memory, lower) {
			continue
		}
		if len(memory.Responses) == 0 {
			if memory.Important() {
				return "その思い出、大切にしてるよ", true
			}
			return "そのこと、覚えてるよ", true
		}
		return memory.Responses[d.intn(len(memory.Responses))], true
	}
	return "", false
}

func memoryMatches(memory Keyword, lowerText string) bool {
	if memory.Keyword != "" && strings.Contains(lowerText, strings.ToLower(memory.Keyword)) {
		return true
	}
	for _, related := range memory.RelatedWords {
		if related != "" && strings.Contains(lowerText, strings.ToLower(related)) {
			return true
		}
	}
	return false
}

// AddCustom registers a memory entry at runtime and persists it.
// weight is clamped into [0,1].
func (d *DB) AddCustom(keyword string, relatedWords, responses []string, weight float64) Keyword {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	entry := Keyword{
		ID:              uuid.NewString(),
		Keyword:         keyword,
		RelatedWords:    relatedWords,
		Responses:       responses,
		EmotionalWeight: weight,
	}

	d.mu.Lock()
	d.custom = append(d.custom, entry)
	d.persistCustom()
	d.mu.Unlock()

	logger.InfoCF("memorydb", "Custom memory added", map[string]any{"keyword": keyword})
	return entry
}

// All returns built-in entries followed by custom entries.
func (d *DB) All() []Keyword {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Keyword, 0, len(builtinMemories)+len(d.custom))
	out = append(out, builtinMemories...)
	out = append(out, d.custom...)
	return out
}

// Search returns entries whose keyword or related words contain text.
func (d *DB) Search(text string) []Keyword {
	lower := strings.ToLower(text)

	var out []Keyword
	for _, memory := range d.All() {
		if strings.Contains(strings.ToLower(memory.Keyword), lower) {
			out = append(out, memory)
			continue
		}
		for _, related := range memory.RelatedWords {
			if strings.Contains(strings.ToLower(related), lower) {
				out = append(out, memory)
				break
			}
		}
	}
	return out
}

func (d *DB) intn(n int) int {
	if d.rng != nil {
		return d.rng.Intn(n)
	}
	return rand.Intn(n)
}
