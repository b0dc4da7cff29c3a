// Package learner grows a keyword-to-response association table from
// observed conversation turns. Learning is a deterministic frequency
// table, not a trained model; the table is persisted write-through as
// a single serialized blob.
package learner

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/omokage-app/omokage/pkg/logger"
	"github.com/omokage-app/omokage/pkg/profiler"
	"github.com/omokage-app/omokage/pkg/store"
)

// DefaultWindowSize bounds the FIFO turn window used for pattern
// analysis. Evicted turns are not retracted from the learned table.
const DefaultWindowSize = 1000

// Turn is one observed user/persona exchange.
type Turn struct {
	User string
	Bot  string
}

// Stats reports the learner's current size.
type Stats struct {
	KeywordCount int
	WindowCount  int
}

// Learner observes conversation turns and recalls learned responses by
// keyword. All mutation paths hold a single lock and persist the whole
// table on every change.
type Learner struct {
	store      store.StateStore
	rng        *rand.Rand
	windowSize int

	mu     sync.RWMutex
	assoc  map[string][]string
	window []Turn
}

// Option configures a Learner.
type Option func(*Learner)

// WithWindowSize overrides the FIFO window bound.
func WithWindowSize(n int) Option {
	return func(l *Learner) {
		if n > 0 {
			l.windowSize = n
		}
	}
}

// New loads the learned table from the store. Missing or corrupt state
// degrades to an empty table.
func New(st store.StateStore, rng *rand.Rand, opts ...Option) *Learner {
	l := &Learner{
		store:      st,
		rng:        rng,
		windowSize: DefaultWindowSize,
		assoc:      map[string][]string{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

func (l *Learner) load() {
	if l.store == nil {
		return
	}
	raw, err := l.store.GetBlob(context.Background(), store.KeyLearnedPatterns)
	if err != nil {
		logger.WarnCF("learner", "Failed to load learned associations", map[string]any{"error": err.Error()})
		return
	}
	if raw == "" {
		return
	}
	var assoc map[string][]string
	if err := json.Unmarshal([]byte(raw), &assoc); err != nil {
		logger.WarnCF("learner", "Corrupt learned state, starting empty", map[string]any{"error": err.Error()})
		return
	}
	l.assoc = assoc
}

// persist writes the whole table; callers hold l.mu.
func (l *Learner) persist() {
	if l.store == nil {
		return
	}
	data, err := json.Marshal(l.assoc)
	if err != nil {
		logger.ErrorCF("learner", "Failed to encode learned associations", map[string]any{"error": err.Error()})
		return
	}
	if err := l.store.SetBlob(context.Background(), store.KeyLearnedPatterns, string(data)); err != nil {
		logger.ErrorCF("learner", "Failed to persist learned associations", map[string]any{"error": err.Error()})
	}
}

// particleRunes are Japanese particles and copula runes treated as
// token separators; there is no real morphological analysis here,
// splitting on particles is close enough for keyword extraction.
var particleRunes = map[rune]bool{
	'は': true, 'が': true, 'を': true, 'に': true, 'で': true,
	'と': true, 'の': true, 'な': true, 'だ': true, 'も': true,
	'へ': true, 'や': true,
}

// stopWords are full tokens excluded even when they survive splitting.
var stopWords = map[string]bool{
	"です": true, "ます": true, "する": true, "した": true,
	"the": true, "a": true, "an": true, "is": true, "to": true,
}

// ExtractKeywords tokenizes user text on whitespace and particle
// runes, dropping stop words and single-rune tokens. Particle runes
// split inside words too, so a word containing one fragments into
// shorter keys (ありがとう learns あり and とう, not the whole word).
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || particleRunes[r]
	})

	var out []string
	for _, word := range fields {
		word = strings.Trim(word, "、。！？!?,.:;\"'()（）")
		if word == "" || stopWords[strings.ToLower(word)] {
			continue
		}
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		out = append(out, word)
	}
	return out
}

// Observe appends turns to the FIFO window and learns each user/bot
// pair: every extracted keyword from the user text gains the bot text
// unless already present (set semantics). The table is persisted once
// per call when anything changed.
func (l *Learner) Observe(turns []Turn) {
	if len(turns) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, turn := range turns {
		l.window = append(l.window, turn)
		if turn.User == "" || turn.Bot == "" {
			continue
		}
		for _, keyword := range ExtractKeywords(turn.User) {
			if l.addAssociation(keyword, turn.Bot) {
				changed = true
			}
		}
	}

	// FIFO eviction only shrinks the analysis window; learned
	// associations are never retracted.
	if excess := len(l.window) - l.windowSize; excess > 0 {
		l.window = append([]Turn(nil), l.window[excess:]...)
	}

	if changed {
		l.persist()
	}
}

// addAssociation returns true when the response was newly added.
// Callers hold l.mu.
func (l *Learner) addAssociation(keyword, response string) bool {
	for _, existing := range l.assoc[keyword] {
		if existing == response {
			return false
		}
	}
	l.assoc[keyword] = append(l.assoc[keyword], response)
	return true
}

// Recall returns a uniformly-random learned response for the first
// learned keyword appearing in text, or false when none matches.
// Matching is plain substring search, and since ExtractKeywords can
// learn short word fragments, recall trades some precision for hit
// rate: a two-rune fragment key matches any text containing it.
func (l *Learner) Recall(text string) (string, bool) {
	lower := strings.ToLower(text)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Deterministic scan order over the map.
	keywords := make([]string, 0, len(l.assoc))
	for keyword := range l.assoc {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		if !strings.Contains(lower, strings.ToLower(keyword)) {
			continue
		}
		responses := l.assoc[keyword]
		if len(responses) == 0 {
			continue
		}
		return responses[l.intn(len(responses))], true
	}
	return "", false
}

// IntegrateProfile seeds the table from a transcript-derived persona
// seed: common phrases map to tone-appropriate canned responses, and
// favorite topics map to topic responses adjusted for the seed's
// communication style.
func (l *Learner) IntegrateProfile(p profiler.Profile) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, phrase := range p.CommonPhrases {
		for _, response := range phraseSeedResponses(phrase) {
			if l.addAssociation(phrase, response) {
				changed = true
			}
		}
	}
	for _, topic := range p.FavoriteTopics {
		for _, response := range topicSeedResponses(topic, p.CommunicationStyle) {
			if l.addAssociation(topic, response) {
				changed = true
			}
		}
	}
	if changed {
		l.persist()
	}

	logger.InfoCF("learner", "Integrated persona seed", map[string]any{
		"phrases": len(p.CommonPhrases),
		"topics":  len(p.FavoriteTopics),
	})
}

func phraseSeedResponses(phrase string) []string {
	switch {
	case strings.Contains(phrase, "ありがとう"):
		return []string{"どういたしまして", "喜んでもらえて嬉しいよ", "いつでも力になるからね"}
	case strings.Contains(phrase, "疲れた"):
		return []string{"お疲れさま", "ゆっくり休んで", "無理しないでね"}
	case strings.Contains(phrase, "楽しい"):
		return []string{"良かったね！", "君の笑顔が見れて嬉しい", "一緒に楽しもう"}
	case strings.Contains(phrase, "そうだね"):
		return []string{"そうだね", "わかるよ", "同感だよ"}
	default:
		return []string{"そうなんだね", "なるほど", "そう思うよ"}
	}
}

func topicSeedResponses(topic, style string) []string {
	var base []string
	switch topic {
	case "仕事":
		base = []string{"仕事、お疲れさま", "頑張ってるね", "仕事のことなら何でも聞くよ"}
	case "映画":
		base = []string{"どんな映画を見たの？", "映画の話、好きだよ", "また一緒に見たいな"}
	case "料理":
		base = []string{"美味しそうだね", "料理上手だね", "今度作ってもらいたいな"}
	default:
		base = []string{"その話、興味深いね", "もっと聞かせて", "君の話は面白いよ"}
	}

	switch {
	case strings.Contains(style, "丁寧"):
		out := make([]string, len(base))
		for i, r := range base {
			out[i] = strings.ReplaceAll(r, "だね", "ですね")
		}
		return out
	case strings.Contains(style, "親しみやすい"):
		out := make([]string, len(base))
		for i, r := range base {
			out[i] = r + "！"
		}
		return out
	default:
		return base
	}
}

// Prune bounds the table: each keyword keeps at most maxResponses of
// its most recent responses, and when more than maxKeywords remain the
// keywords with the fewest responses are dropped first.
func (l *Learner) Prune(maxKeywords, maxResponses int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for keyword, responses := range l.assoc {
		if maxResponses > 0 && len(responses) > maxResponses {
			l.assoc[keyword] = append([]string(nil), responses[len(responses)-maxResponses:]...)
			changed = true
		}
	}

	if maxKeywords > 0 && len(l.assoc) > maxKeywords {
		keywords := make([]string, 0, len(l.assoc))
		for keyword := range l.assoc {
			keywords = append(keywords, keyword)
		}
		sort.Slice(keywords, func(i, j int) bool {
			li, lj := len(l.assoc[keywords[i]]), len(l.assoc[keywords[j]])
			if li != lj {
				return li < lj
			}
			return keywords[i] < keywords[j]
		})
		for _, keyword := range keywords[:len(l.assoc)-maxKeywords] {
			delete(l.assoc, keyword)
			changed = true
		}
	}

	if changed {
		l.persist()
		logger.InfoCF("learner", "Pruned learned table", map[string]any{"keywords": len(l.assoc)})
	}
}

// Clear resets both the in-memory table and the persisted copy.
func (l *Learner) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.assoc = map[string][]string{}
	l.window = nil
	if l.store != nil {
		if err := l.store.DeleteBlob(context.Background(), store.KeyLearnedPatterns); err != nil {
			logger.ErrorCF("learner", "Failed to clear persisted state", map[string]any{"error": err.Error()})
		}
	}
}

// Stats returns the current table and window sizes.
func (l *Learner) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{KeywordCount: len(l.assoc), WindowCount: len(l.window)}
}

func (l *Learner) intn(n int) int {
	if l.rng != nil {
		return l.rng.Intn(n)
	}
	return rand.Intn(n)
}
