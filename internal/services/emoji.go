package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
)

// DefaultEmotionEmoji is used when neither the model nor the configured map
// supplies an emoji for an emotion.
const DefaultEmotionEmoji = "😐"

// EmojiMap is a read-only emotion to emoji lookup table, loaded once at
// startup. It never changes after construction so concurrent reads are safe.
type EmojiMap struct {
	byEmotion map[string]string
}

var builtinEmotionEmojis = map[string]string{
	"happy":        "😊",
	"sad":          "😢",
	"calm":         "😌",
	"stressed":     "😰",
	"excited":      "🎉",
	"neutral":      "😐",
	"angry":        "😠",
	"anxious":      "😟",
	"content":      "😊",
	"disappointed": "😞",
	"energetic":    "⚡",
	"frustrated":   "😤",
	"grateful":     "🙏",
	"joyful":       "😄",
	"lonely":       "😔",
	"peaceful":     "☮️",
	"proud":        "😎",
	"relaxed":      "😌",
	"surprised":    "😲",
	"tired":        "😴",
	"worried":      "😟",
}

// LoadEmojiMap returns the builtin table, optionally extended or overridden by
// the YAML file named in EMOTION_EMOJI_CONFIG. The file is a flat mapping of
// emotion name to emoji string.
func LoadEmojiMap(log *logger.Logger) (*EmojiMap, error) {
	merged := make(map[string]string, len(builtinEmotionEmojis))
	for k, v := range builtinEmotionEmojis {
		merged[k] = v
	}

	path := strings.TrimSpace(os.Getenv("EMOTION_EMOJI_CONFIG"))
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read emoji config %s: %w", path, err)
		}
		var overrides map[string]string
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("parse emoji config %s: %w", path, err)
		}
		for k, v := range overrides {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.TrimSpace(v)
			if k == "" || v == "" {
				continue
			}
			merged[k] = v
		}
		log.Info("Loaded emotion emoji overrides", "path", path, "entries", len(overrides))
	}

	return &EmojiMap{byEmotion: merged}, nil
}

// Lookup returns the emoji for an emotion, falling back to DefaultEmotionEmoji.
func (m *EmojiMap) Lookup(emotion string) string {
	if e, ok := m.byEmotion[strings.ToLower(strings.TrimSpace(emotion))]; ok {
		return e
	}
	return DefaultEmotionEmoji
}

// Complete fills in an emoji for every emotion in the list. Emojis supplied by
// the caller win over the configured table.
func (m *EmojiMap) Complete(emotions []string, provided map[string]string) map[string]string {
	out := make(map[string]string, len(emotions))
	for _, emotion := range emotions {
		if e, ok := provided[emotion]; ok && strings.TrimSpace(e) != "" {
			out[emotion] = e
			continue
		}
		out[emotion] = m.Lookup(emotion)
	}
	return out
}

// All returns a copy of the full table.
func (m *EmojiMap) All() map[string]string {
	out := make(map[string]string, len(m.byEmotion))
	for k, v := range m.byEmotion {
		out[k] = v
	}
	return out
}
