package translation_test

import (
	"babelchat/backend/internal/translation"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectHeuristic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"chinese", "你好世界", "zh"},
		{"japanese kana", "こんにちは", "ja"},
		{"japanese with kanji", "日本語を話します", "ja"},
		{"arabic", "مرحبا", "ar"},
		{"hindi", "नमस्ते", "hi"},
		{"korean", "안녕하세요", "ko"},
		{"spanish", "¿Cómo estás?", "es"},
		{"french", "Ça va très bien", "fr"},
		{"german", "Straße", "de"},
		{"plain ascii", "Hello there", "en"},
		{"empty", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translation.DetectHeuristic(tt.text))
		})
	}
}
