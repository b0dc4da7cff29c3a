// Package profiler infers a persona seed from parsed transcript
// records: which participant the persona should imitate, and their
// phrase, style, personality, topic and frequency statistics.
package profiler

import (
	"sort"
	"strings"

	"github.com/omokage-app/omokage/pkg/transcript"
)

// Profile is the one-shot persona seed produced from a transcript
// import. It is consumed by persona creation and then discarded; it is
// not kept in sync with the transcript.
type Profile struct {
	DetectedName       string
	CommonPhrases      []string
	CommunicationStyle string
	PersonalityTraits  []string
	FavoriteTopics     []string
	EmotionalTone      string
	ResponsePatterns   []string
	MessageFrequency   string
}

// Style, tone and frequency labels.
const (
	StylePolite    = "丁寧で礼儀正しい口調"
	StyleEnergetic = "親しみやすく元気な口調"
	StyleFriendly  = "フレンドリーな口調"
	StyleCalm      = "落ち着いた自然な口調"

	TonePositive = "ポジティブで前向き"
	ToneCautious = "思慮深く慎重"
	ToneBalanced = "バランスの取れた"

	FrequencyVeryClose  = "とても親しい関係"
	FrequencyFrequent   = "よく話す関係"
	FrequencyModerate   = "適度に連絡を取る関係"
	FrequencyOccasional = "たまに連絡を取る関係"
)

// Analyze profiles the target sender of the given records. Callers must
// pass a non-empty record slice; Parse already guarantees that.
func Analyze(records []transcript.Record) Profile {
	target := IdentifyTargetSender(records)

	texts := make([]string, 0, len(records))
	for _, r := range records {
		if r.Sender == target {
			texts = append(texts, r.Text)
		}
	}

	return Profile{
		DetectedName:       target,
		CommonPhrases:      analyzePhrases(texts),
		CommunicationStyle: analyzeCommunicationStyle(texts),
		PersonalityTraits:  analyzePersonality(texts),
		FavoriteTopics:     analyzeTopics(texts),
		EmotionalTone:      analyzeEmotionalTone(texts),
		ResponsePatterns:   defaultResponsePatterns(),
		MessageFrequency:   classifyMessageFrequency(len(texts)),
	}
}

// selfKeywords are sender names that refer to the exporting user and
// are never selected as the persona target.
var selfKeywords = map[string]bool{
	"私":  true,
	"自分": true,
	"me": true,
	"Me": true,
	"ME": true,
}

// IdentifyTargetSender picks the non-self sender with the most
// messages. Count ties are broken by the lexicographically smallest
// sender name so the result is deterministic for a given transcript.
func IdentifyTargetSender(records []transcript.Record) string {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Sender]++
	}

	best := ""
	bestCount := -1
	for sender, count := range counts {
		if selfKeywords[sender] {
			continue
		}
		if count > bestCount || (count == bestCount && sender < best) {
			best = sender
			bestCount = count
		}
	}
	if best == "" && len(records) > 0 {
		return records[0].Sender
	}
	return best
}

// phrasePatterns is the fixed catchphrase dictionary scanned for
// frequency, not arbitrary n-grams.
var phrasePatterns = []string{
	"そうだね", "なるほど", "わかる", "いいね", "ありがとう",
	"お疲れ", "頑張って", "大丈夫", "楽しい", "嬉しい",
	"すごい", "やばい", "めっちゃ", "かなり", "ちょっと",
}

func analyzePhrases(texts []string) []string {
	freq := map[string]int{}
	for _, text := range texts {
		for _, phrase := range phrasePatterns {
			if strings.Contains(text, phrase) {
				freq[phrase]++
			}
		}
	}

	type phraseCount struct {
		phrase string
		count  int
	}
	var counts []phraseCount
	for phrase, count := range freq {
		if count >= 2 {
			counts = append(counts, phraseCount{phrase, count})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].phrase < counts[j].phrase
	})

	out := make([]string, 0, 10)
	for _, pc := range counts {
		out = append(out, pc.phrase)
		if len(out) == 10 {
			break
		}
	}
	return out
}

var politeMarkers = []string{"です", "ます", "ございます", "いたします"}

func analyzeCommunicationStyle(texts []string) string {
	total := len(texts)
	if total == 0 {
		return StyleCalm
	}

	politeCount := 0
	exclamationCount := 0
	emojiCount := 0
	for _, text := range texts {
		if containsAny(text, politeMarkers) {
			politeCount++
		}
		if strings.Contains(text, "!") || strings.Contains(text, "！") {
			exclamationCount++
		}
		if containsEmoji(text) {
			emojiCount++
		}
	}

	politeRatio := float64(politeCount) / float64(total)
	exclamationRatio := float64(exclamationCount) / float64(total)
	emojiRatio := float64(emojiCount) / float64(total)

	// Bands are mutually exclusive, evaluated in priority order.
	switch {
	case politeRatio > 0.3:
		return StylePolite
	case exclamationRatio > 0.4 || emojiRatio > 0.3:
		return StyleEnergetic
	case emojiRatio > 0.1:
		return StyleFriendly
	default:
		return StyleCalm
	}
}

// traitKeywords maps each personality trait to its marker keywords.
// Ordered so the resulting trait list is deterministic.
var traitKeywords = []struct {
	trait    string
	keywords []string
}{
	{"優しい", []string{"ありがとう", "大丈夫", "心配", "気をつけて", "お疲れ"}},
	{"明るい", []string{"楽しい", "嬉しい", "いいね", "！", "😊", "😄"}},
	{"思いやりがある", []string{"大丈夫？", "無理しない", "気をつけて", "お疲れさま"}},
	{"ユーモアがある", []string{"笑", "www", "爆笑", "面白い", "😂"}},
	{"真面目", []string{"仕事", "勉強", "頑張", "努力", "責任"}},
	{"聞き上手", []string{"そうなんだ", "なるほど", "へー", "詳しく", "教えて"}},
}

func analyzePersonality(texts []string) []string {
	if len(texts) == 0 {
		return []string{"優しい"}
	}

	var traits []string
	for _, entry := range traitKeywords {
		matched := 0
		for _, text := range texts {
			if containsAny(text, entry.keywords) {
				matched++
			}
		}
		if float64(matched)/float64(len(texts)) > 0.1 {
			traits = append(traits, entry.trait)
		}
	}
	if len(traits) == 0 {
		traits = []string{"優しい"}
	}
	return traits
}

var (
	positiveWords = []string{"嬉しい", "楽しい", "いいね", "素晴らしい", "最高"}
	negativeWords = []string{"悲しい", "辛い", "疲れた", "大変", "困った"}
)

func analyzeEmotionalTone(texts []string) string {
	positive := 0
	negative := 0
	for _, text := range texts {
		if containsAny(text, positiveWords) {
			positive++
		}
		if containsAny(text, negativeWords) {
			negative++
		}
	}

	switch {
	case positive > negative*2:
		return TonePositive
	case negative > positive*2:
		return ToneCautious
	default:
		return ToneBalanced
	}
}

// topicKeywords maps conversation topics to marker keywords. Ordered
// for a deterministic hit-count sort.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"仕事", []string{"仕事", "会社", "職場", "上司", "同僚", "残業"}},
	{"家族", []string{"家族", "両親", "子ども", "家", "実家"}},
	{"趣味", []string{"映画", "音楽", "読書", "ゲーム", "スポーツ", "料理"}},
	{"日常", []string{"今日", "昨日", "明日", "朝", "夜", "食事"}},
	{"健康", []string{"体調", "病気", "疲れた", "元気", "健康"}},
	{"恋愛", []string{"彼氏", "彼女", "恋人", "デート", "好き"}},
	{"友人", []string{"友達", "飲み会", "遊び", "会う", "久しぶり"}},
}

func analyzeTopics(texts []string) []string {
	type topicCount struct {
		topic string
		count int
	}
	var counts []topicCount
	for _, entry := range topicKeywords {
		hit := 0
		for _, text := range texts {
			if containsAny(text, entry.keywords) {
				hit++
			}
		}
		if hit > 0 {
			counts = append(counts, topicCount{entry.topic, hit})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})

	out := make([]string, 0, 5)
	for _, tc := range counts {
		out = append(out, tc.topic)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func defaultResponsePatterns() []string {
	return []string{"そうなんだね", "わかるよ", "頑張って", "お疲れさま", "ありがとう"}
}

func classifyMessageFrequency(count int) string {
	switch {
	case count > 1000:
		return FrequencyVeryClose
	case count > 500:
		return FrequencyFrequent
	case count > 100:
		return FrequencyModerate
	default:
		return FrequencyOccasional
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// containsEmoji reports whether text holds a rune in the common emoji
// blocks. Coverage of the pictographic planes is enough for style
// classification.
func containsEmoji(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF, // pictographs, emoticons, symbols
			r >= 0x2600 && r <= 0x27BF, // misc symbols, dingbats
			r == 0x2764:                // heavy black heart
			return true
		}
	}
	return false
}
