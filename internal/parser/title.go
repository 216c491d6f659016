package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// replyPrefixPattern matches a single leading reply or forward marker.
var replyPrefixPattern = regexp.MustCompile(`(?i)^(re|fwd?):\s*`)

// automatedSenderMarkers are substrings that identify machine senders.
var automatedSenderMarkers = []string{
	"noreply",
	"no-reply",
	"no_reply",
	"donotreply",
	"do-not-reply",
	"mailer-daemon",
	"postmaster",
	"notifications@",
	"notification@",
	"automated",
	"alerts@",
}

// CleanSubject strips all leading Re:/Fwd: prefixes from a subject line.
// Stacked prefixes ("Re: Fwd: Re: hello") are removed in full.
func CleanSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := replyPrefixPattern.ReplaceAllString(s, "")
		if stripped == s {
			return s
		}
		s = strings.TrimSpace(stripped)
	}
}

// ConversationTitle derives a display title for a thread. The cleaned
// subject wins; with no usable subject the participants fill in, and a
// thread with no subject and no participants is titled "Conversation".
func ConversationTitle(subject string, participants []Participant) string {
	if title := CleanSubject(subject); title != "" {
		return title
	}

	switch len(participants) {
	case 0:
		return "Conversation"
	case 1:
		return participants[0].DisplayName()
	default:
		return fmt.Sprintf("%s +%d others", participants[0].DisplayName(), len(participants)-1)
	}
}

// IsAutomatedSender reports whether the address looks machine-generated.
func IsAutomatedSender(email string) bool {
	lower := strings.ToLower(email)
	for _, marker := range automatedSenderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
