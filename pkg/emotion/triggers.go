package emotion

import "github.com/google/uuid"

// Trigger is one keyword-set-to-response rule representing a detectable
// emotion. Intensity is always within [1,10].
type Trigger struct {
	ID        string   `json:"id"`
	Emotion   string   `json:"emotion"`
	Emoji     string   `json:"emoji"`
	Keywords  []string `json:"keywords"`
	Responses []string `json:"responses"`
	FollowUps []string `json:"follow_ups"`
	Intensity int      `json:"intensity"`
}

// NewTrigger builds a trigger with a fresh ID, clamping intensity into
// [1,10].
func NewTrigger(emotion, emoji string, keywords, responses, followUps []string, intensity int) Trigger {
	return Trigger{
		ID:        uuid.NewString(),
		Emotion:   emotion,
		Emoji:     emoji,
		Keywords:  keywords,
		Responses: responses,
		FollowUps: followUps,
		Intensity: clampIntensity(intensity),
	}
}

func clampIntensity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// builtinTriggers is the immutable process-wide rule set. Custom
// triggers are layered on top and searched first.
var builtinTriggers = []Trigger{
	{
		ID:      "builtin-lonely",
		Emotion: "寂しい",
		Emoji:   "🕊",
		Keywords: []string{
			"さびしい", "ひとり", "会いたい", "孤独", "一人", "淋しい",
		},
		Responses: []string{
			"そばにいるよ、いつでも",
			"一人じゃないからね",
			"君のことを想ってるよ",
			"大丈夫、私がいるから",
			"いつでも話しかけて",
			"心の中でつながってるよ",
		},
		FollowUps: []string{
			"どんなことを考えてるの？",
			"何か話したいことはある？",
			"今日はどんな一日だった？",
			"一緒にいた時のこと、覚えてる？",
		},
		Intensity: 7,
	},
	{
		ID:      "builtin-talk",
		Emotion: "話したい",
		Emoji:   "💬",
		Keywords: []string{
			"話したい", "聞いて", "相談", "おしゃべり", "話す", "会話",
		},
		Responses: []string{
			"何でも話して",
			"いつでも聞いてるよ",
			"どんな話？楽しみ",
			"君の話が好きだよ",
			"ゆっくり聞かせて",
			"何から話そうか？",
		},
		FollowUps: []string{
			"最近どう？",
			"何か面白いことあった？",
			"今の気持ちを聞かせて",
			"困ったことはない？",
		},
		Intensity: 6,
	},
	{
		ID:      "builtin-thanks",
		Emotion: "ありがとう",
		Emoji:   "🌈",
		Keywords: []string{
			"ありがとう", "感謝", "嬉しい", "助かった", "サンキュー",
		},
		Responses: []string{
			"どういたしまして",
			"君の笑顔が一番だよ",
			"喜んでもらえて嬉しい",
			"いつでも力になるからね",
			"君のためなら何でもするよ",
			"役に立てて良かった",
		},
		FollowUps: []string{
			"他にも何かある？",
			"今度は何をしようか？",
			"幸せな気持ちだね",
			"また一緒に何かしよう",
		},
		Intensity: 8,
	},
	{
		ID:      "builtin-tired",
		Emotion: "疲れた",
		Emoji:   "😴",
		Keywords: []string{
			"疲れた", "つかれた", "疲労", "しんどい", "だるい", "眠い",
		},
		Responses: []string{
			"お疲れさま",
			"ゆっくり休んで",
			"無理しないでね",
			"頑張ってるね",
			"体を大切にして",
			"少し休憩しよう",
			"今日も一日お疲れさま",
		},
		FollowUps: []string{
			"今日は何があったの？",
			"ちゃんと食べた？",
			"睡眠は取れてる？",
			"何か手伝えることある？",
		},
		Intensity: 5,
	},
	{
		ID:      "builtin-happy",
		Emotion: "嬉しい",
		Emoji:   "😊",
		Keywords: []string{
			"嬉しい", "うれしい", "楽しい", "幸せ", "喜び", "ハッピー",
		},
		Responses: []string{
			"良かったね！",
			"君の笑顔が見れて嬉しい",
			"幸せそうでなによりだよ",
			"一緒に喜ばせて",
			"素晴らしいじゃない",
			"君が幸せだと私も嬉しい",
		},
		FollowUps: []string{
			"何があったの？詳しく聞かせて",
			"どんな気持ち？",
			"誰かに話したくなるよね",
			"また嬉しいことがありますように",
		},
		Intensity: 8,
	},
	{
		ID:      "builtin-worried",
		Emotion: "心配",
		Emoji:   "😰",
		Keywords: []string{
			"心配", "不安", "怖い", "ドキドキ", "緊張", "悩み",
		},
		Responses: []string{
			"大丈夫だよ",
			"一緒に考えよう",
			"君なら乗り越えられる",
			"私がついてるから",
			"心配しなくていいよ",
			"何とかなるよ",
			"君の味方だからね",
		},
		FollowUps: []string{
			"何が心配なの？",
			"話してみて、楽になるかも",
			"どうしたらいいと思う？",
			"一人で抱え込まないで",
		},
		Intensity: 6,
	},
}

// BuiltinTriggers returns a copy of the built-in rule set.
func BuiltinTriggers() []Trigger {
	out := make([]Trigger, len(builtinTriggers))
	copy(out, builtinTriggers)
	return out
}
