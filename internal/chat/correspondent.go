package chat

import (
	"sort"
	"strings"
)

// GroupCorrespondents folds a flat message list into one entry per sender,
// keyed by the lowercased, trimmed sender address. Messages from the
// current user are excluded so the sidebar only lists counterparts. When
// currentUserEmail is empty (session not resolved yet) nothing is
// filtered. Each correspondent keeps its most recent message, message and
// unread totals, and the thread of its latest message; the result is
// sorted by last activity, newest first.
func GroupCorrespondents(messages []Message, currentUserEmail string) []Correspondent {
	self := strings.ToLower(strings.TrimSpace(currentUserEmail))

	byEmail := make(map[string]*Correspondent)
	for _, msg := range messages {
		key := strings.ToLower(strings.TrimSpace(msg.SenderEmail))
		if key == "" {
			continue
		}
		if self != "" && key == self {
			continue
		}

		entry, ok := byEmail[key]
		if !ok {
			entry = &Correspondent{
				Email:        key,
				Name:         msg.SenderName,
				LastMessage:  msg,
				ThreadID:     msg.ThreadID,
				LastActivity: msg.Timestamp,
			}
			byEmail[key] = entry
		}
		entry.MessageCount++
		if msg.Status == StatusDelivered {
			entry.UnreadCount++
		}

		if msg.Timestamp.After(entry.LastActivity) {
			entry.LastMessage = msg
			entry.ThreadID = msg.ThreadID
			entry.LastActivity = msg.Timestamp
			if msg.SenderName != "" {
				entry.Name = msg.SenderName
			}
		}
	}

	correspondents := make([]Correspondent, 0, len(byEmail))
	for _, entry := range byEmail {
		correspondents = append(correspondents, *entry)
	}
	sort.Slice(correspondents, func(i, j int) bool {
		return correspondents[i].LastActivity.After(correspondents[j].LastActivity)
	})
	return correspondents
}
