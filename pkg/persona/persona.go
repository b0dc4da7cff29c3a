// Package persona defines the persona the response engine speaks as,
// with TOML file storage under the workspace personas directory.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/omokage-app/omokage/pkg/profiler"
)

// Mood is a coarse current-mood label.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodExcited Mood = "excited"
	MoodCalm    Mood = "calm"
	MoodAnxious Mood = "anxious"
	MoodAngry   Mood = "angry"
	MoodNeutral Mood = "neutral"
)

// DisplayName returns the Japanese label for a mood.
func (m Mood) DisplayName() string {
	switch m {
	case MoodHappy:
		return "幸せ"
	case MoodSad:
		return "悲しい"
	case MoodExcited:
		return "興奮"
	case MoodCalm:
		return "穏やか"
	case MoodAnxious:
		return "不安"
	case MoodAngry:
		return "怒り"
	default:
		return "普通"
	}
}

// Emoji returns the mood's emoji.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodSad:
		return "😢"
	case MoodExcited:
		return "🤩"
	case MoodCalm:
		return "😌"
	case MoodAnxious:
		return "😰"
	case MoodAngry:
		return "😠"
	default:
		return "😐"
	}
}

// Persona is the full description of who the engine responds as.
type Persona struct {
	ID             string   `toml:"id"`
	Name           string   `toml:"name"`
	Relationship   string   `toml:"relationship"`
	Personality    []string `toml:"personality"`
	SpeechStyle    string   `toml:"speech_style"`
	Catchphrases   []string `toml:"catchphrases"`
	FavoriteTopics []string `toml:"favorite_topics"`
	Mood           Mood     `toml:"mood"`
}

// DisplayName returns the persona name, or a placeholder when unset.
func (p Persona) DisplayName() string {
	if p.Name == "" {
		return "名前なし"
	}
	return p.Name
}

// Default returns the out-of-the-box assistant persona used before any
// transcript has been imported.
func Default() Persona {
	return Persona{
		ID:             uuid.NewString(),
		Name:           "アシスタント",
		Relationship:   "サポーター",
		Personality:    []string{"親しみやすい", "頼れる", "優しい"},
		SpeechStyle:    "丁寧で親しみやすい口調",
		Catchphrases:   []string{"お疲れさまです", "いつでもサポートします"},
		FavoriteTopics: []string{"日常会話", "相談事", "雑談"},
		Mood:           MoodHappy,
	}
}

// FromProfile converts a transcript-derived sender profile into a
// persona seed.
func FromProfile(p profiler.Profile) Persona {
	name := p.DetectedName
	if name == "" {
		name = "名前なし"
	}

	// The profiler's top phrases double as catchphrases.
	catchphrases := p.CommonPhrases
	if len(catchphrases) > 3 {
		catchphrases = catchphrases[:3]
	}

	return Persona{
		ID:             uuid.NewString(),
		Name:           name,
		Relationship:   "友達",
		Personality:    p.PersonalityTraits,
		SpeechStyle:    p.CommunicationStyle,
		Catchphrases:   catchphrases,
		FavoriteTopics: p.FavoriteTopics,
		Mood:           moodFromTone(p.EmotionalTone),
	}
}

func moodFromTone(tone string) Mood {
	switch {
	case strings.Contains(tone, "前向き"), strings.Contains(tone, "ポジティブ"):
		return MoodHappy
	case strings.Contains(tone, "慎重"):
		return MoodCalm
	default:
		return MoodNeutral
	}
}

// Load reads a persona TOML file.
func Load(path string) (Persona, error) {
	var p Persona
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Persona{}, fmt.Errorf("failed to load persona from %s: %w", path, err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p, nil
}

// Save writes a persona as a TOML file, creating parent directories.
func Save(p Persona, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create persona directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create persona file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(p); err != nil {
		return fmt.Errorf("failed to encode persona: %w", err)
	}
	return nil
}
