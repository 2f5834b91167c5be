package intake

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength caps the stored description, in characters.
const MaxDescriptionLength = 50000

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// bullet glyphs rewritten to markdown list markers
var bulletPrefixes = []string{"• ", "· ", "▪ ", "◦ ", "– "}

// CleanText normalizes line endings, collapses inline whitespace, rewrites bullet glyphs as
// "- " and keeps at most one blank line between paragraphs. Text is capped at
// MaxDescriptionLength characters.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	out := strings.Join(lines, "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	if utf8.RuneCountInString(out) > MaxDescriptionLength {
		out = strings.TrimSpace(string([]rune(out)[:MaxDescriptionLength]))
	}
	return out
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	if trimmed == "" {
		return ""
	}
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return "- " + strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
	}
	if strings.HasPrefix(trimmed, "* ") {
		return "- " + strings.TrimSpace(trimmed[2:])
	}
	return trimmed
}
