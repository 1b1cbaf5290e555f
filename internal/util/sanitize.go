package util

import (
	"strings"
	"unicode"
)

const (
	MaxTitleRunes       = 200
	MaxDescriptionRunes = 4000
)

// CleanText strips control and invisible characters, trims surrounding
// whitespace and truncates to maxRunes. Newlines and tabs survive when
// keepNewlines is set.
func CleanText(raw string, maxRunes int, keepNewlines bool) string {
	builder := strings.Builder{}
	builder.Grow(len(raw))

	for _, char := range raw {
		if keepNewlines && (char == '\n' || char == '\t') {
			builder.WriteRune(char)
			continue
		}
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(builder.String())

	// Truncate by runes to avoid splitting multi-byte characters.
	if maxRunes > 0 {
		if runes := []rune(cleaned); len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}

	return cleaned
}

// CleanOptional applies CleanText to an optional field. An input that is
// empty after cleaning becomes nil.
func CleanOptional(raw *string, maxRunes int) *string {
	if raw == nil {
		return nil
	}
	cleaned := CleanText(*raw, maxRunes, true)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // zero-width space
		'\u200C', // zero-width non-joiner
		'\u200D', // zero-width joiner
		'\u200E', // left-to-right mark
		'\u200F', // right-to-left mark
		'\u2060', // word joiner
		'\uFEFF': // BOM
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
