package profiler

import (
	"fmt"
	"testing"

	"github.com/omokage-app/omokage/pkg/transcript"
)

func recordsFor(sender string, count int, text string) []transcript.Record {
	out := make([]transcript.Record, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, transcript.Record{
			Timestamp: fmt.Sprintf("10:%02d", i%60),
			Sender:    sender,
			Text:      text,
		})
	}
	return out
}

func TestIdentifyTargetSender_ExcludesSelf(t *testing.T) {
	records := append(recordsFor("田中", 600, "おはよう"), recordsFor("私", 650, "おはよう")...)

	got := IdentifyTargetSender(records)
	if got != "田中" {
		t.Fatalf("target = %q, want 田中 (self sender must be excluded even with more messages)", got)
	}
}

func TestIdentifyTargetSender_TieBreak(t *testing.T) {
	records := append(recordsFor("佐藤", 5, "やあ"), recordsFor("伊藤", 5, "やあ")...)

	// Ties break toward the lexicographically smallest sender name.
	got := IdentifyTargetSender(records)
	if got != "伊藤" {
		t.Fatalf("target = %q, want 伊藤 for deterministic tie-break", got)
	}
}

func TestIdentifyTargetSender_AllSelfFallsBack(t *testing.T) {
	records := recordsFor("私", 3, "メモ")
	if got := IdentifyTargetSender(records); got != "私" {
		t.Fatalf("target = %q, want fallback to first sender", got)
	}
}

func TestAnalyze_FrequencyBands(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{50, FrequencyOccasional},
		{101, FrequencyModerate},
		{600, FrequencyFrequent},
		{1001, FrequencyVeryClose},
	}
	for _, tc := range cases {
		records := append(recordsFor("田中", tc.count, "こんにちは"), recordsFor("私", 10, "こんにちは")...)
		p := Analyze(records)
		if p.MessageFrequency != tc.want {
			t.Errorf("count %d: frequency = %q, want %q", tc.count, p.MessageFrequency, tc.want)
		}
	}
}

func TestAnalyze_PoliteStyle(t *testing.T) {
	records := recordsFor("田中", 10, "本日はありがとうございます")
	p := Analyze(records)
	if p.CommunicationStyle != StylePolite {
		t.Fatalf("style = %q, want %q", p.CommunicationStyle, StylePolite)
	}
}

func TestAnalyze_EnergeticStyle(t *testing.T) {
	records := recordsFor("田中", 10, "やったー！最高！")
	p := Analyze(records)
	if p.CommunicationStyle != StyleEnergetic {
		t.Fatalf("style = %q, want %q", p.CommunicationStyle, StyleEnergetic)
	}
}

func TestAnalyze_CalmStyleDefault(t *testing.T) {
	records := recordsFor("田中", 10, "了解")
	p := Analyze(records)
	if p.CommunicationStyle != StyleCalm {
		t.Fatalf("style = %q, want %q", p.CommunicationStyle, StyleCalm)
	}
}

func TestAnalyze_CommonPhrasesRequireTwoHits(t *testing.T) {
	records := []transcript.Record{
		{Timestamp: "10:00", Sender: "田中", Text: "なるほど、そうだね"},
		{Timestamp: "10:01", Sender: "田中", Text: "なるほどね"},
		{Timestamp: "10:02", Sender: "田中", Text: "すごい！"},
		{Timestamp: "10:03", Sender: "私", Text: "そうだね"},
	}
	p := Analyze(records)

	found := map[string]bool{}
	for _, phrase := range p.CommonPhrases {
		found[phrase] = true
	}
	if !found["なるほど"] {
		t.Errorf("expected なるほど (2 hits) in common phrases, got %v", p.CommonPhrases)
	}
	if found["すごい"] {
		t.Errorf("すごい has only 1 hit and must not appear, got %v", p.CommonPhrases)
	}
	if found["そうだね"] {
		// そうだね appears once for 田中; the 私 record is not the target's.
		t.Errorf("そうだね counted across senders: %v", p.CommonPhrases)
	}
}

func TestAnalyze_PersonalityFallback(t *testing.T) {
	records := recordsFor("田中", 10, "了解")
	p := Analyze(records)
	if len(p.PersonalityTraits) != 1 || p.PersonalityTraits[0] != "優しい" {
		t.Fatalf("traits = %v, want single fallback trait", p.PersonalityTraits)
	}
}

func TestAnalyze_EmotionalTone(t *testing.T) {
	positive := recordsFor("田中", 10, "楽しい一日だった、最高")
	if p := Analyze(positive); p.EmotionalTone != TonePositive {
		t.Errorf("tone = %q, want %q", p.EmotionalTone, TonePositive)
	}

	negative := recordsFor("田中", 10, "疲れた、大変だった")
	if p := Analyze(negative); p.EmotionalTone != ToneCautious {
		t.Errorf("tone = %q, want %q", p.EmotionalTone, ToneCautious)
	}

	mixed := append(recordsFor("田中", 5, "楽しい"), recordsFor("田中", 5, "疲れた")...)
	if p := Analyze(mixed); p.EmotionalTone != ToneBalanced {
		t.Errorf("tone = %q, want %q", p.EmotionalTone, ToneBalanced)
	}
}

func TestAnalyze_TopicsTopFive(t *testing.T) {
	records := []transcript.Record{
		{Timestamp: "10:00", Sender: "田中", Text: "仕事で残業だった"},
		{Timestamp: "10:01", Sender: "田中", Text: "会社の上司がね"},
		{Timestamp: "10:02", Sender: "田中", Text: "映画を見たよ"},
		{Timestamp: "10:03", Sender: "田中", Text: "家族と実家に帰った"},
		{Timestamp: "10:04", Sender: "田中", Text: "今日は朝から食事した"},
		{Timestamp: "10:05", Sender: "田中", Text: "体調が悪くて病気かも"},
		{Timestamp: "10:06", Sender: "田中", Text: "友達と飲み会だった"},
	}
	p := Analyze(records)

	if len(p.FavoriteTopics) > 5 {
		t.Fatalf("topics capped at 5, got %d: %v", len(p.FavoriteTopics), p.FavoriteTopics)
	}
	if p.FavoriteTopics[0] != "仕事" {
		t.Errorf("top topic = %q, want 仕事 (2 hits)", p.FavoriteTopics[0])
	}
}
