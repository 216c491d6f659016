package parser

import (
	"regexp"
	"strings"
)

// nameAddrPattern matches the `"Display Name" <addr@example.com>` form,
// with or without the surrounding quotes.
var nameAddrPattern = regexp.MustCompile(`^"?([^"<]*)"?\s*<([^>]+)>$`)

// ParseAddress parses a single From-style header value into a Participant.
// Tokens that match neither recognized form degrade to a bare email.
func ParseAddress(raw string) Participant {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Participant{}
	}

	if m := nameAddrPattern.FindStringSubmatch(raw); m != nil {
		return Participant{
			Name:  strings.TrimSpace(m[1]),
			Email: strings.TrimSpace(m[2]),
		}
	}

	return Participant{Email: raw}
}

// ParseAddressList parses a comma separated recipient header value.
// Commas inside quoted display names do not split.
func ParseAddressList(raw string) []Participant {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var participants []Participant
	for _, token := range splitAddresses(raw) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		participants = append(participants, ParseAddress(token))
	}
	return participants
}

// splitAddresses splits on commas that are outside of double quotes.
func splitAddresses(s string) []string {
	var (
		parts    []string
		start    int
		inQuotes bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
