package parser

import (
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// defaultSubject is used when a message carries no Subject header.
const defaultSubject = "(No Subject)"

// headerMap builds a case-insensitive lookup over payload headers.
// When a header occurs more than once, the last occurrence wins.
func headerMap(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}
	return headers
}

// ParseMessage normalizes a single raw Gmail message. It never fails:
// missing or malformed pieces degrade to zero values and defaults.
func ParseMessage(msg *gmail.Message, opts Options) *Email {
	if msg == nil {
		return nil
	}

	headers := headerMap(msg.Payload)

	subject := headers["subject"]
	if subject == "" {
		subject = defaultSubject
	}

	email := &Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     ParseAddress(headers["from"]),
		To:       ParseAddressList(headers["to"]),
		CC:       ParseAddressList(headers["cc"]),
		Subject:  subject,
		Date:     time.UnixMilli(msg.InternalDate),
		Labels:   msg.LabelIds,
	}

	labels := make(map[string]bool, len(msg.LabelIds))
	for _, l := range msg.LabelIds {
		labels[l] = true
	}
	email.IsRead = !labels[LabelUnread]
	email.IsStarred = labels[LabelStarred]
	email.IsImportant = labels[LabelImportant]

	email.Body = extractBody(msg.Payload)

	snippetSource := email.Body.Text
	if snippetSource == "" {
		snippetSource = msg.Snippet
	}
	email.Snippet = Snippet(snippetSource)

	if opts.IncludeAttachments {
		email.Attachments = extractAttachments(msg.Payload, opts)
	}

	return email
}

// ParseThread normalizes a full Gmail thread, folding its messages into
// thread-level rollups.
func ParseThread(thread *gmail.Thread, opts Options) *Thread {
	if thread == nil {
		return nil
	}

	t := &Thread{ID: thread.Id}

	for _, raw := range thread.Messages {
		email := ParseMessage(raw, opts)
		if email == nil {
			continue
		}
		t.Messages = append(t.Messages, email)
	}

	seenParticipants := make(map[string]bool)
	seenLabels := make(map[string]bool)

	for _, email := range t.Messages {
		for _, p := range participantsOf(email) {
			key := strings.ToLower(p.Email)
			if key == "" || seenParticipants[key] {
				continue
			}
			seenParticipants[key] = true
			t.Participants = append(t.Participants, p)
		}

		for _, l := range email.Labels {
			if !seenLabels[l] {
				seenLabels[l] = true
				t.Labels = append(t.Labels, l)
			}
		}

		if !email.IsRead {
			t.UnreadCount++
		}
		if email.IsStarred {
			t.IsStarred = true
		}
		if email.IsImportant {
			t.IsImportant = true
		}

		// Strictly-after comparison keeps the earliest message on ties.
		if t.LastMessage == nil || email.Date.After(t.LastMessage.Date) {
			t.LastMessage = email
		}
	}

	// The first message names the thread; later replies may drift.
	var subject string
	if len(t.Messages) > 0 {
		subject = t.Messages[0].Subject
		if subject == defaultSubject {
			subject = ""
		}
	}
	if subject == "" && t.LastMessage != nil && t.LastMessage.Subject != defaultSubject {
		subject = t.LastMessage.Subject
	}
	t.Subject = CleanSubject(subject)
	t.MessageCount = len(t.Messages)

	if t.LastMessage != nil {
		t.Snippet = t.LastMessage.Snippet
	}

	return t
}

// participantsOf lists every address a message names, sender first.
func participantsOf(email *Email) []Participant {
	participants := make([]Participant, 0, 1+len(email.To)+len(email.CC))
	participants = append(participants, email.From)
	participants = append(participants, email.To...)
	participants = append(participants, email.CC...)
	return participants
}
