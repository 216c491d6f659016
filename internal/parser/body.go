package parser

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	gmail "google.golang.org/api/gmail/v1"
)

// sanitizePolicy cleans HTML bodies before they are handed to clients.
var sanitizePolicy = bluemonday.UGCPolicy()

var (
	scriptPattern   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	lineBreakTags   = regexp.MustCompile(`(?i)<(?:br\s*/?|/p|/div|/h[1-6]|/li|/tr)>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	multiSpace      = regexp.MustCompile(`[ \t]+`)
	multiBlankLines = regexp.MustCompile(`\n{3,}`)
)

// decodeBase64 decodes Gmail's base64url part data, falling back to
// standard base64 for payloads produced by non-conforming senders.
func decodeBase64(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, err
		}
	}
	return decoded, nil
}

// walkParts performs a depth-first traversal over the MIME part tree.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// extractBody pulls the first text/plain and first text/html parts out of
// the payload. When only HTML exists, a plain-text rendering is derived
// from it; HTML is never synthesized from text.
func extractBody(payload *gmail.MessagePart) Body {
	var text, html string

	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		switch part.MimeType {
		case "text/plain":
			if text == "" {
				if decoded, err := decodeBase64(part.Body.Data); err == nil {
					text = string(decoded)
				}
			}
		case "text/html":
			if html == "" {
				if decoded, err := decodeBase64(part.Body.Data); err == nil {
					html = string(decoded)
				}
			}
		}
	})

	if text == "" && html != "" {
		text = HTMLToText(html)
	}

	if html != "" {
		html = SanitizeHTML(html)
	}

	return Body{Text: text, HTML: html}
}

// SanitizeHTML strips dangerous markup from an HTML body so it is safe to
// render in a client.
func SanitizeHTML(html string) string {
	return sanitizePolicy.Sanitize(html)
}

// HTMLToText derives a plain-text rendering from an HTML body. Scripts and
// styles are dropped, block-level closers become newlines, remaining tags
// are stripped, and the standard entities are unescaped.
func HTMLToText(html string) string {
	s := scriptPattern.ReplaceAllString(html, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	s = replacer.Replace(s)

	s = multiSpace.ReplaceAllString(s, " ")
	s = multiBlankLines.ReplaceAllString(s, "\n\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
