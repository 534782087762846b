package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestEmojiMapDefaults(t *testing.T) {
	t.Setenv("EMOTION_EMOJI_CONFIG", "")
	m, err := LoadEmojiMap(testLogger(t))
	if err != nil {
		t.Fatalf("LoadEmojiMap: %v", err)
	}

	if got := m.Lookup("happy"); got != "😊" {
		t.Fatalf("Lookup(happy) = %q", got)
	}
	if got := m.Lookup("  HAPPY  "); got != "😊" {
		t.Fatalf("Lookup should normalize, got %q", got)
	}
	if got := m.Lookup("nostalgic"); got != DefaultEmotionEmoji {
		t.Fatalf("unknown emotion should fall back, got %q", got)
	}
}

func TestEmojiMapYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emojis.yaml")
	if err := os.WriteFile(path, []byte("happy: \"🌞\"\nnostalgic: \"📷\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EMOTION_EMOJI_CONFIG", path)

	m, err := LoadEmojiMap(testLogger(t))
	if err != nil {
		t.Fatalf("LoadEmojiMap: %v", err)
	}
	if got := m.Lookup("happy"); got != "🌞" {
		t.Fatalf("override should win, got %q", got)
	}
	if got := m.Lookup("nostalgic"); got != "📷" {
		t.Fatalf("new entry should resolve, got %q", got)
	}
	if got := m.Lookup("sad"); got != "😢" {
		t.Fatalf("builtin entries should survive overrides, got %q", got)
	}
}

func TestEmojiMapBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emojis.yaml")
	if err := os.WriteFile(path, []byte(":::\nnot yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EMOTION_EMOJI_CONFIG", path)

	if _, err := LoadEmojiMap(testLogger(t)); err == nil {
		t.Fatalf("expected error for invalid config")
	}
}

func TestEmojiMapComplete(t *testing.T) {
	t.Setenv("EMOTION_EMOJI_CONFIG", "")
	m, err := LoadEmojiMap(testLogger(t))
	if err != nil {
		t.Fatalf("LoadEmojiMap: %v", err)
	}

	got := m.Complete(
		[]string{"joyful", "happy", "mysterious"},
		map[string]string{"joyful": "🎈", "mysterious": ""},
	)
	if got["joyful"] != "🎈" {
		t.Fatalf("model-provided emoji should win, got %q", got["joyful"])
	}
	if got["happy"] != "😊" {
		t.Fatalf("configured emoji expected, got %q", got["happy"])
	}
	if got["mysterious"] != DefaultEmotionEmoji {
		t.Fatalf("blank model emoji should fall back, got %q", got["mysterious"])
	}
}
