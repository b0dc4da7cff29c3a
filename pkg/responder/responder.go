// Package responder generates persona replies by layering the
// contextual keyword table, emotion detection, memory recall, learned
// associations, and recent emotional context, in that priority order.
// Generation is
// deterministic apart from the injected rng and clock, and never
// returns an empty string.
package responder

import (
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/omokage-app/omokage/pkg/emotion"
	"github.com/omokage-app/omokage/pkg/learner"
	"github.com/omokage-app/omokage/pkg/memorydb"
	"github.com/omokage-app/omokage/pkg/persona"
	"github.com/omokage-app/omokage/pkg/store"
)

// contextualEntry pairs a trigger keyword with its response pool.
// Entries are scanned in order so matching is deterministic.
type contextualEntry struct {
	keyword   string
	responses []string
}

// {name} is replaced with the persona name at generation time.
var contextualEntries = []contextualEntry{
	{"おはよう", []string{
		"おはよう！今日もいい一日にしよう",
		"おはよう、{name}！体調はどう？",
		"朝から{name}に会えて嬉しいよ",
		"おはよう！昨日はよく眠れた？",
	}},
	{"こんにちは", []string{
		"こんにちは！お昼はどう過ごしてる？",
		"こんにちは、{name}！元気そうで良かった",
		"お疲れさま！今日は忙しかった？",
	}},
	{"おやすみ", []string{
		"おやすみ、{name}。ゆっくり休んでね",
		"今日も一日お疲れさま。いい夢を",
		"おやすみ！また明日話そう",
	}},
	{"嬉しい", []string{
		"{name}が嬉しそうで私も嬉しいよ！",
		"何があったの？詳しく聞かせて",
		"その調子！いいことがあったんだね",
		"{name}の笑顔が見えるようだよ",
	}},
	{"悲しい", []string{
		"大丈夫？何があったか話してもいいよ",
		"辛い時は一人で抱え込まないで",
		"{name}の味方はいつでもここにいるから",
		"ゆっくりでいいから、話してみて",
	}},
	{"疲れた", []string{
		"お疲れさま。今日も頑張ったね",
		"少し休憩しない？無理は禁物だよ",
		"{name}の頑張りをいつも見てるよ",
		"体だけは気をつけてね",
	}},
	{"家族", []string{
		"家族の話、いつでも聞くよ",
		"家族は{name}にとって大切な存在だもんね",
		"家族みんな元気？",
		"家族の時間も大切にしてね",
	}},
	{"仕事", []string{
		"仕事、お疲れさま",
		"今日はどんな一日だった？",
		"仕事のことなら何でも相談して",
		"{name}なら大丈夫。応援してるよ",
	}},
	{"どう", []string{
		"私は{name}と話せて幸せだよ",
		"{name}がいてくれるから毎日楽しいよ",
		"{name}のことをもっと知りたいな",
		"いつも通り、{name}のことを想ってる",
	}},
	{"元気", []string{
		"{name}が元気なら私も元気！",
		"うん、{name}と話してると元気になる",
		"{name}はどう？体調は大丈夫？",
		"元気な{name}を見てると安心する",
	}},
	{"ありがとう", []string{
		"どういたしまして！{name}のためなら何でもするよ",
		"{name}に喜んでもらえて嬉しい",
		"いつでも力になるからね",
		"感謝されると照れちゃうな",
	}},
}

var longMessageResponses = []string{
	"たくさん話してくれてありがとう",
	"{name}の話をじっくり聞かせてもらったよ",
	"詳しく話してくれて嬉しいな",
	"そんなことがあったんだね",
}

var questionResponses = []string{
	"{name}の質問には何でも答えるよ",
	"どんなことでも聞いて",
	"私に聞いてくれてありがとう",
	"一緒に考えてみよう",
}

var topicTransitions = []string{
	"ところで、",
	"そういえば、",
	"話は変わるけど、",
	"それより、",
}

var longConversationRemarks = []string{
	"ずっと話してて楽しいな",
	"君といると時間があっという間だね",
	"こうして話せて嬉しいよ",
	"もっと聞かせて",
}

// Generator produces persona replies. It has no learning side effects;
// the caller feeds finalized turns to the learner.
type Generator struct {
	emotions *emotion.Engine
	memories *memorydb.DB
	learned  *learner.Learner
	rng      *rand.Rand
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for time-of-day modifiers.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New builds a Generator. Any engine may be nil; its layer is skipped.
func New(emotions *emotion.Engine, memories *memorydb.DB, learned *learner.Learner, rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{
		emotions: emotions,
		memories: memories,
		learned:  learned,
		rng:      rng,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a reply to userMessage as the given persona.
// history is the recent chronological session history used for
// anti-repetition and long-conversation adjustments.
func (g *Generator) Generate(p persona.Persona, history []store.Message, userMessage string) string {
	response := g.baseResponse(p, history, userMessage)
	response = g.personalize(response, p)
	response = g.adjustForContext(response, p, history)
	if response == "" {
		response = "そうなんだね"
	}
	return response
}

func (g *Generator) baseResponse(p persona.Persona, history []store.Message, userMessage string) string {
	// 1. Contextual keyword table.
	for _, entry := range contextualEntries {
		if strings.Contains(userMessage, entry.keyword) {
			return g.interpolate(g.pick(entry.responses), p)
		}
	}

	// 2. Emotion detection, with an occasional time-of-day prefix.
	if g.emotions != nil {
		if trigger := g.emotions.Detect(userMessage); trigger != nil {
			response := g.emotions.Respond(trigger)
			if modifier := timeModifier(g.now().Hour()); modifier != "" && g.chance(2) {
				response = modifier + response
			}
			return response
		}
	}

	// 3. Memory recall.
	if g.memories != nil {
		if response, ok := g.memories.Recall(userMessage); ok {
			return response
		}
	}

	// 4. Learned associations.
	if g.learned != nil {
		if response, ok := g.learned.Recall(userMessage); ok {
			return response
		}
	}

	// 5. Recent emotional context. The current message says nothing on
	// its own, but the last user turns may carry a dominant emotion.
	if g.emotions != nil {
		var userTurns []string
		for _, msg := range history {
			if msg.Role == store.RoleUser {
				userTurns = append(userTurns, msg.Content)
			}
		}
		if len(userTurns) > 0 {
			if analysis := g.emotions.Aggregate(userTurns); analysis.DominantEmotion != "" {
				return g.emotions.ResponseFor(analysis.DominantEmotion)
			}
		}
	}

	// 6. Length and question heuristics.
	if utf8.RuneCountInString(userMessage) > 20 {
		return g.interpolate(g.pick(longMessageResponses), p)
	}
	if strings.Contains(userMessage, "？") || strings.Contains(userMessage, "?") {
		return g.interpolate(g.pick(questionResponses), p)
	}

	// 7. Persona-style default.
	return g.styleDefault(p)
}

func (g *Generator) styleDefault(p persona.Persona) string {
	switch {
	case strings.Contains(p.SpeechStyle, "元気"):
		return g.interpolate(g.pick([]string{"そうなんだね！", "なるほど！", "{name}らしいな！"}), p)
	case strings.Contains(p.SpeechStyle, "優しい"):
		return g.interpolate(g.pick([]string{"そうなのね", "わかるよ", "{name}の気持ち、理解できる"}), p)
	default:
		return g.interpolate(g.pick([]string{"なるほど", "そういうことか", "{name}の話はいつも興味深いよ"}), p)
	}
}

// personalize layers persona traits, catchphrases, and relationship
// tone onto a base response.
func (g *Generator) personalize(response string, p persona.Persona) string {
	if containsTrait(p.Personality, "創造的") && g.chance(2) {
		response += " 何か新しいアイデアはある？"
	}
	if containsTrait(p.Personality, "聞き上手") && g.chance(2) {
		response += " もっと詳しく聞かせて"
	}

	if len(p.Catchphrases) > 0 && g.chance(3) {
		response = g.pick(p.Catchphrases) + " " + response
	}

	switch {
	case strings.Contains(p.Relationship, "家族"),
		strings.Contains(p.Relationship, "母"),
		strings.Contains(p.Relationship, "父"):
		response = strings.ReplaceAll(response, "君", "あなた")
	case strings.Contains(p.Relationship, "恋人"):
		response += "♪"
	}

	return response
}

// adjustForContext breaks up repetitive replies and marks long
// conversations.
func (g *Generator) adjustForContext(response string, p persona.Persona, history []store.Message) string {
	var botTurns []string
	for _, msg := range history {
		if msg.Role == store.RolePersona {
			botTurns = append(botTurns, msg.Content)
		}
	}

	if len(botTurns) >= 2 {
		lastTwo := botTurns[len(botTurns)-2:]
		if strings.Contains(lastTwo[0], "そう") && strings.Contains(lastTwo[1], "そう") && len(p.FavoriteTopics) > 0 {
			response += " " + g.pick(topicTransitions) + g.pick(p.FavoriteTopics) + "の話でもしよう？"
		}
	}

	if len(history) > 20 && g.chance(2) {
		response += " " + g.pick(longConversationRemarks) + "。"
	}

	return response
}

// timeModifier returns the Japanese time-of-day prefix for an hour.
func timeModifier(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "朝から"
	case hour >= 12 && hour < 17:
		return "お昼に"
	case hour >= 17 && hour < 21:
		return "夕方から"
	default:
		return "夜遅くに"
	}
}

func containsTrait(traits []string, trait string) bool {
	for _, t := range traits {
		if t == trait {
			return true
		}
	}
	return false
}

func (g *Generator) interpolate(response string, p persona.Persona) string {
	return strings.ReplaceAll(response, "{name}", p.DisplayName())
}

func (g *Generator) pick(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[g.intn(len(candidates))]
}

// chance returns true with probability 1/n.
func (g *Generator) chance(n int) bool {
	return g.intn(n) == 0
}

func (g *Generator) intn(n int) int {
	if g.rng != nil {
		return g.rng.Intn(n)
	}
	return rand.Intn(n)
}
