package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Twe-ux/arc-messenger/internal/parser"
)

const userEmail = "me@example.com"

func sampleEmail(id, from, text string, date time.Time) *parser.Email {
	return &parser.Email{
		ID:       id,
		ThreadID: "t1",
		From:     parser.ParseAddress(from),
		To:       []parser.Participant{{Email: userEmail}},
		Subject:  "Subject",
		Date:     date,
		Body:     parser.Body{Text: text},
		Snippet:  parser.Snippet(text),
		IsRead:   true,
	}
}

func TestToMessage(t *testing.T) {
	conv := NewConverter(userEmail)
	date := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("incoming message", func(t *testing.T) {
		msg := conv.ToMessage(sampleEmail("m1", `"Alice" <alice@example.com>`, "hello", date))

		assert.False(t, msg.IsOwn)
		assert.Equal(t, "Alice", msg.SenderName)
		assert.Equal(t, "alice@example.com", msg.SenderEmail)
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, TypeText, msg.Type)
		assert.Equal(t, StatusRead, msg.Status)
		assert.Equal(t, PriorityNormal, msg.Priority)
	})

	t.Run("own message detected case-insensitively", func(t *testing.T) {
		msg := conv.ToMessage(sampleEmail("m1", "ME@Example.COM", "hi", date))

		assert.True(t, msg.IsOwn)
		assert.Equal(t, "You", msg.SenderName)
		assert.Equal(t, StatusSent, msg.Status)
	})

	t.Run("own message content carries recipients", func(t *testing.T) {
		email := sampleEmail("m1", userEmail, "body", date)
		email.CC = []parser.Participant{{Name: "Bob", Email: "bob@example.com"}}
		msg := conv.ToMessage(email)

		assert.True(t, strings.HasPrefix(msg.Content, "To: me@example.com\nCC: Bob\n"))
		assert.Contains(t, msg.Content, "body")
	})

	t.Run("unread incoming message is delivered", func(t *testing.T) {
		email := sampleEmail("m1", "alice@example.com", "hi", date)
		email.IsRead = false
		assert.Equal(t, StatusDelivered, conv.ToMessage(email).Status)
	})

	t.Run("important message is high priority", func(t *testing.T) {
		email := sampleEmail("m1", "alice@example.com", "hi", date)
		email.IsImportant = true
		assert.Equal(t, PriorityHigh, conv.ToMessage(email).Priority)
	})

	t.Run("automated sender is low priority", func(t *testing.T) {
		email := sampleEmail("m1", "noreply@example.com", "hi", date)
		assert.Equal(t, PriorityLow, conv.ToMessage(email).Priority)
	})

	t.Run("quote markers and blank runs cleaned", func(t *testing.T) {
		email := sampleEmail("m1", "alice@example.com", "reply\n\n\n\n> quoted line\n>> deeper", date)
		msg := conv.ToMessage(email)

		assert.NotContains(t, msg.Content, ">")
		assert.NotContains(t, msg.Content, "\n\n\n")
	})

	t.Run("signature separator normalized", func(t *testing.T) {
		email := sampleEmail("m1", "alice@example.com", "body\n-- \nsig", date)
		assert.Contains(t, conv.ToMessage(email).Content, "---")
	})

	t.Run("attachment summary appended", func(t *testing.T) {
		email := sampleEmail("m1", "alice@example.com", "see attached", date)
		email.Attachments = []parser.Attachment{
			{Filename: "report.pdf", MimeType: "application/pdf", Size: 2048},
		}
		msg := conv.ToMessage(email)

		assert.Contains(t, msg.Content, "📎 report.pdf")
		assert.Contains(t, msg.Content, "2.0 KiB")
	})
}

func TestMessageType(t *testing.T) {
	date := time.Now()
	conv := NewConverter(userEmail)

	image := parser.Attachment{Filename: "pic.png", MimeType: "image/png", Size: 10}
	pdf := parser.Attachment{Filename: "doc.pdf", MimeType: "application/pdf", Size: 10}

	tests := []struct {
		name        string
		attachments []parser.Attachment
		expected    MessageType
	}{
		{name: "no attachments", expected: TypeText},
		{name: "single image", attachments: []parser.Attachment{image}, expected: TypeImage},
		{name: "single file", attachments: []parser.Attachment{pdf}, expected: TypeFile},
		{name: "image plus file is file", attachments: []parser.Attachment{image, pdf}, expected: TypeFile},
		{name: "two images is file", attachments: []parser.Attachment{image, image}, expected: TypeFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := sampleEmail("m1", "alice@example.com", "x", date)
			email.Attachments = tt.attachments
			assert.Equal(t, tt.expected, conv.ToMessage(email).Type)
		})
	}
}

func TestToConversation(t *testing.T) {
	conv := NewConverter(userEmail)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	twoParty := &parser.Thread{
		ID:      "t1",
		Subject: "Standup",
		Participants: []parser.Participant{
			{Name: "Alice", Email: "alice@example.com"},
			{Email: userEmail},
		},
	}
	twoParty.Messages = []*parser.Email{
		sampleEmail("m1", "alice@example.com", "first", base),
		sampleEmail("m2", "alice@example.com", "second", base.Add(time.Hour)),
	}
	twoParty.LastMessage = twoParty.Messages[1]
	twoParty.MessageCount = 2
	twoParty.UnreadCount = 1

	t.Run("two party thread named after counterpart", func(t *testing.T) {
		c := conv.ToConversation(twoParty)

		assert.Equal(t, "Alice", c.Name)
		assert.Equal(t, "A", c.Avatar)
		assert.False(t, c.IsGroup)
		assert.Equal(t, 2, c.MessageCount)
		assert.Equal(t, 1, c.UnreadCount)
		assert.Equal(t, "second", c.LastMessage)
		assert.Equal(t, "Alice", c.LastMessageSender)
		require.Len(t, c.Messages, 2)
	})

	t.Run("group thread keeps subject", func(t *testing.T) {
		group := &parser.Thread{
			ID:      "t2",
			Subject: "Planning",
			Participants: []parser.Participant{
				{Email: "a@example.com"},
				{Email: "b@example.com"},
				{Email: userEmail},
			},
		}
		c := conv.ToConversation(group)

		assert.Equal(t, "Planning", c.Name)
		assert.Empty(t, c.Avatar)
		assert.True(t, c.IsGroup)
	})

	t.Run("group without subject named after the other participants", func(t *testing.T) {
		group := &parser.Thread{
			ID: "t4",
			Participants: []parser.Participant{
				{Email: userEmail},
				{Name: "Alice", Email: "alice@example.com"},
				{Email: "bob@example.com"},
			},
		}
		c := conv.ToConversation(group)

		assert.Equal(t, "Alice +1 others", c.Name)
		assert.Empty(t, c.Avatar)
	})

	t.Run("starred thread is pinned", func(t *testing.T) {
		starred := &parser.Thread{ID: "t3", Subject: "S", IsStarred: true}
		assert.True(t, conv.ToConversation(starred).IsPinned)
	})

	t.Run("conversion is pure", func(t *testing.T) {
		first := conv.ToConversation(twoParty)
		second := conv.ToConversation(twoParty)
		assert.Equal(t, first, second)
	})

	t.Run("header projection", func(t *testing.T) {
		h := conv.ToHeader(twoParty)

		assert.Equal(t, "t1", h.ID)
		assert.Equal(t, "Alice", h.Name)
		assert.Equal(t, 2, h.MessageCount)
		assert.Equal(t, "second", h.LastMessage)
	})
}

func TestFormatPreview(t *testing.T) {
	t.Run("image message", func(t *testing.T) {
		msg := Message{Type: TypeImage}
		assert.Equal(t, "📷 Photo", formatPreview(msg))
	})

	t.Run("file message names the attachment", func(t *testing.T) {
		msg := Message{
			Type:        TypeFile,
			Attachments: []parser.Attachment{{Filename: "doc.pdf"}},
		}
		assert.Equal(t, "📎 doc.pdf", formatPreview(msg))
	})

	t.Run("long text truncated", func(t *testing.T) {
		msg := Message{Type: TypeText, Content: strings.Repeat("a", 200)}
		out := formatPreview(msg)

		assert.True(t, strings.HasSuffix(out, "..."))
		assert.Len(t, []rune(out), previewMaxLength+3)
	})

	t.Run("first line only", func(t *testing.T) {
		msg := Message{Type: TypeText, Content: "first line\nsecond line"}
		assert.Equal(t, "first line", formatPreview(msg))
	})
}
