package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EmotionAnalysis is the validated payload extracted from one model response.
type EmotionAnalysis struct {
	Caption        string            `json:"caption"`
	Emotions       []string          `json:"emotions"`
	EmotionEmojis  map[string]string `json:"emotion_emojis"`
	PrimaryEmotion string            `json:"primary_emotion"`
	Confidence     float64           `json:"confidence"`
}

func buildEmotionPrompt() string {
	var b strings.Builder
	b.WriteString("Return ONLY JSON.\n\n")
	b.WriteString("Analyze this image comprehensively and identify ALL emotions present. Look at:\n")
	b.WriteString("- Facial expressions of people\n")
	b.WriteString("- Body language and postures\n")
	b.WriteString("- Scene atmosphere and mood\n")
	b.WriteString("- Color tones and lighting\n")
	b.WriteString("- Context and setting\n")
	b.WriteString("- Overall emotional resonance\n\n")
	b.WriteString("You must:\n")
	b.WriteString("- Write a brief, descriptive caption (1-2 sentences) describing what's in the image.\n")
	b.WriteString("- List ALL emotions you detect (lowercase words; be specific, e.g. joyful, melancholic, serene, nostalgic).\n")
	b.WriteString("- For EACH emotion, provide the most appropriate emoji.\n")
	b.WriteString("- Name the PRIMARY/dominant emotion from your list.\n")
	b.WriteString("- Give a confidence score between 0.0 and 1.0 for the primary emotion.\n")
	b.WriteString("- Do not hallucinate details not visible.\n\n")
	b.WriteString("JSON shape:\n")
	b.WriteString(`{
  "caption": "string",
  "emotions": ["joyful", "energetic"],
  "emotion_emojis": {"joyful": "😄", "energetic": "⚡"},
  "primary_emotion": "joyful",
  "confidence": 0.85
}`)
	return b.String()
}

func parseEmotionJSON(s string) (*EmotionAnalysis, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty response")
	}
	// Try to locate a JSON object if model wrapped it
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	var out EmotionAnalysis
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.Caption) == "" {
		return nil, fmt.Errorf("missing caption")
	}

	// Normalize emotions: lowercase, trimmed, deduped, in model order.
	seen := make(map[string]bool, len(out.Emotions))
	emotions := make([]string, 0, len(out.Emotions))
	for _, e := range out.Emotions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		emotions = append(emotions, e)
	}
	if len(emotions) == 0 {
		return nil, fmt.Errorf("missing emotions")
	}
	out.Emotions = emotions

	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %v", out.Confidence)
	}

	primary := strings.ToLower(strings.TrimSpace(out.PrimaryEmotion))
	if primary == "" || !seen[primary] {
		primary = emotions[0]
	}
	out.PrimaryEmotion = primary

	// The stored list leads with the primary emotion.
	if emotions[0] != primary {
		reordered := make([]string, 0, len(emotions))
		reordered = append(reordered, primary)
		for _, e := range emotions {
			if e != primary {
				reordered = append(reordered, e)
			}
		}
		out.Emotions = reordered
	}

	if out.EmotionEmojis == nil {
		out.EmotionEmojis = map[string]string{}
	} else {
		normalized := make(map[string]string, len(out.EmotionEmojis))
		for k, v := range out.EmotionEmojis {
			k = strings.ToLower(strings.TrimSpace(k))
			v = strings.TrimSpace(v)
			if k == "" || v == "" {
				continue
			}
			normalized[k] = v
		}
		out.EmotionEmojis = normalized
	}

	return &out, nil
}
