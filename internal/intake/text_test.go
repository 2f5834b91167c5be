package intake

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"inline whitespace", "  Senior   Go\tEngineer  ", "Senior Go Engineer"},
		{"blank runs", "para one\n\n\n\n\npara two", "para one\n\npara two"},
		{"whitespace-only lines", "a\n   \n\t\nb", "a\n\nb"},
		{"bullet glyphs", "• Go\n· SQL\n* Kafka\n- Redis", "- Go\n- SQL\n- Kafka\n- Redis"},
		{"non-breaking space", "Go  developer", "Go developer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestCleanText_Truncates(t *testing.T) {
	out := CleanText(strings.Repeat("é", MaxDescriptionLength+10))
	assert.Equal(t, MaxDescriptionLength, utf8.RuneCountInString(out))
}
