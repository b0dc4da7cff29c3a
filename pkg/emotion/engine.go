// Package emotion detects emotional intent in a message via
// keyword-triggered rules and generates responses from the matched
// rule. Detection failure is a normal outcome, never an error.
package emotion

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"

	"github.com/omokage-app/omokage/pkg/logger"
	"github.com/omokage-app/omokage/pkg/store"
)

// Analysis summarizes emotion hits across recent messages.
type Analysis struct {
	DominantEmotion  string
	EmotionCounts    map[string]int
	AverageIntensity int
	ContextualHints  []string
}

// Engine holds the built-in triggers plus user-added custom triggers.
// Custom triggers are searched with priority and persisted write-through
// to the state store.
type Engine struct {
	store  store.StateStore
	rng    *rand.Rand
	mu     sync.RWMutex
	custom []Trigger
}

// NewEngine loads custom triggers from the store. A missing or corrupt
// blob degrades to an empty custom set; built-ins still function.
func NewEngine(st store.StateStore, rng *rand.Rand) *Engine {
	e := &Engine{store: st, rng: rng}
	e.loadCustom()
	return e
}

func (e *Engine) loadCustom() {
	if e.store == nil {
		return
	}
	raw, err := e.store.GetBlob(context.Background(), store.KeyCustomTriggers)
	if err != nil {
		logger.WarnCF("emotion", "Failed to load custom triggers", map[string]any{"error": err.Error()})
		return
	}
	if raw == "" {
		return
	}
	var custom []Trigger
	if err := json.Unmarshal([]byte(raw), &custom); err != nil {
		logger.WarnCF("emotion", "Corrupt custom trigger state, starting empty", map[string]any{"error": err.Error()})
		return
	}
	for i := range custom {
		custom[i].Intensity = clampIntensity(custom[i].Intensity)
	}
	e.custom = custom
}

func (e *Engine) persistCustom() {
	if e.store == nil {
		return
	}
	data, err := json.Marshal(e.custom)
	if err != nil {
		logger.ErrorCF("emotion", "Failed to encode custom triggers", map[string]any{"error": err.Error()})
		return
	}
	if err := e.store.SetBlob(context.Background(), store.KeyCustomTriggers, string(data)); err != nil {
		logger.ErrorCF("emotion", "Failed to persist custom triggers", map[string]any{"error": err.Error()})
	}
}

// AddCustom appends a custom trigger and persists the custom set.
// Intensity is clamped before storage.
func (e *Engine) AddCustom(t Trigger) {
	t.Intensity = clampIntensity(t.Intensity)

	e.mu.Lock()
	e.custom = append(e.custom, t)
	e.persistCustom()
	e.mu.Unlock()

	logger.InfoCF("emotion", "Custom trigger added", map[string]any{
		"emotion": t.Emotion,
		"emoji":   t.Emoji,
	})
}

// RemoveCustom deletes a custom trigger by ID. Returns false if no
// trigger has that ID.
func (e *Engine) RemoveCustom(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, t := range e.custom {
		if t.ID == id {
			e.custom = append(e.custom[:i], e.custom[i+1:]...)
			e.persistCustom()
			return true
		}
	}
	return false
}

// CustomTriggers returns a copy of the current custom trigger set.
func (e *Engine) CustomTriggers() []Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Trigger, len(e.custom))
	copy(out, e.custom)
	return out
}

// AllTriggers returns built-ins plus custom triggers.
func (e *Engine) AllTriggers() []Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Trigger, 0, len(builtinTriggers)+len(e.custom))
	out = append(out, builtinTriggers...)
	out = append(out, e.custom...)
	return out
}

// Detect returns the first trigger whose keyword is a case-insensitive
// substring of text. Custom triggers are checked before built-ins. A
// nil result means no emotion was detected, which is not an error.
func (e *Engine) Detect(text string) *Trigger {
	lower := strings.ToLower(text)

	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.custom {
		if triggerMatches(&e.custom[i], lower) {
			t := e.custom[i]
			return &t
		}
	}
	for i := range builtinTriggers {
		if triggerMatches(&builtinTriggers[i], lower) {
			t := builtinTriggers[i]
			return &t
		}
	}
	return nil
}

// DetectAll returns every trigger with a keyword hit in text.
func (e *Engine) DetectAll(text string) []Trigger {
	lower := strings.ToLower(text)

	var out []Trigger
	for _, t := range e.AllTriggers() {
		if triggerMatches(&t, lower) {
			out = append(out, t)
		}
	}
	return out
}

func triggerMatches(t *Trigger, lowerText string) bool {
	for _, kw := range t.Keywords {
		if kw != "" && strings.Contains(lowerText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Aggregate scans the most recent texts (up to 10) against ALL
// triggers and tallies every hit, not just the first match.
func (e *Engine) Aggregate(texts []string) Analysis {
	if len(texts) > 10 {
		texts = texts[len(texts)-10:]
	}

	counts := map[string]int{}
	totalIntensity := 0
	totalHits := 0
	var hints []string

	for _, text := range texts {
		for _, t := range e.DetectAll(text) {
			counts[t.Emotion]++
			totalIntensity += t.Intensity
			totalHits++
			if len(t.FollowUps) > 0 {
				hints = append(hints, t.FollowUps[e.intn(len(t.FollowUps))])
			}
		}
	}

	dominant := ""
	best := 0
	for emotion, count := range counts {
		if count > best || (count == best && emotion < dominant) {
			dominant = emotion
			best = count
		}
	}

	avg := 0
	if totalHits > 0 {
		avg = totalIntensity / totalHits
	}
	if len(hints) > 3 {
		hints = hints[:3]
	}

	return Analysis{
		DominantEmotion:  dominant,
		EmotionCounts:    counts,
		AverageIntensity: avg,
		ContextualHints:  hints,
	}
}

// Respond picks a uniformly-random response from the trigger, appending
// one follow-up question half the time.
func (e *Engine) Respond(t *Trigger) string {
	if t == nil || len(t.Responses) == 0 {
		return "そうなんだね"
	}
	response := t.Responses[e.intn(len(t.Responses))]
	if len(t.FollowUps) > 0 && e.intn(2) == 0 {
		response += " " + t.FollowUps[e.intn(len(t.FollowUps))]
	}
	return response
}

// ResponseFor looks up a trigger by emotion label across all triggers
// and returns a full response for it.
func (e *Engine) ResponseFor(emotion string) string {
	for _, t := range e.AllTriggers() {
		if t.Emotion == emotion {
			return e.Respond(&t)
		}
	}
	return "君の気持ち、わかるよ"
}

func (e *Engine) intn(n int) int {
	if e.rng != nil {
		return e.rng.Intn(n)
	}
	return rand.Intn(n)
}
