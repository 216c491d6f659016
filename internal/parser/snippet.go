package parser

import (
	"regexp"
	"strings"
)

// snippetMaxLength is the character budget for generated snippets.
const snippetMaxLength = 150

var whitespacePattern = regexp.MustCompile(`\s+`)

// Snippet produces a short single-line preview of a message body. The text
// is whitespace-normalized and cut to at most snippetMaxLength characters.
// When the cut lands inside a word and a space exists within the last 20%
// of the budget, the snippet breaks at that space instead. An ellipsis is
// appended only when truncation happened.
func Snippet(text string) string {
	normalized := strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))

	runes := []rune(normalized)
	if len(runes) <= snippetMaxLength {
		return normalized
	}

	cut := string(runes[:snippetMaxLength])
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > snippetMaxLength*8/10 {
		cut = cut[:lastSpace]
	}
	return cut + "..."
}
