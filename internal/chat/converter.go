package chat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/Twe-ux/arc-messenger/internal/parser"
)

// previewMaxLength caps the conversation-list preview text.
const previewMaxLength = 100

var (
	quoteMarkerPattern = regexp.MustCompile(`(?m)^[\s>]+`)
	blankRunPattern    = regexp.MustCompile(`\n{3,}`)
	separatorPattern   = regexp.MustCompile(`(?m)^\s*--+\s*$`)
)

// Converter turns parsed emails into chat messages and conversations for
// one signed-in user.
type Converter struct {
	userEmail string
}

// NewConverter binds a converter to the signed-in user's email address.
func NewConverter(userEmail string) *Converter {
	return &Converter{userEmail: userEmail}
}

// isOwn reports whether the given sender is the bound user.
func (c *Converter) isOwn(senderEmail string) bool {
	return c.userEmail != "" && strings.EqualFold(senderEmail, c.userEmail)
}

// ToMessage converts a single parsed email into a chat message.
func (c *Converter) ToMessage(email *parser.Email) Message {
	isOwn := c.isOwn(email.From.Email)

	senderName := email.From.DisplayName()
	if isOwn {
		senderName = "You"
	}

	return Message{
		ID:          email.ID,
		ThreadID:    email.ThreadID,
		Content:     c.formatContent(email, isOwn),
		Timestamp:   email.Date,
		IsOwn:       isOwn,
		SenderName:  senderName,
		SenderEmail: email.From.Email,
		Type:        messageType(email),
		Status:      messageStatus(email, isOwn),
		Priority:    messagePriority(email),
		IsStarred:   email.IsStarred,
		Attachments: email.Attachments,
	}
}

// ToConversation converts a parsed thread into a full conversation,
// messages sorted oldest first.
func (c *Converter) ToConversation(thread *parser.Thread) Conversation {
	conv := Conversation{
		ID:           thread.ID,
		MessageCount: thread.MessageCount,
		UnreadCount:  thread.UnreadCount,
		IsGroup:      len(thread.Participants) > 2,
		IsPinned:     thread.IsStarred,
		IsImportant:  thread.IsImportant,
		Participants: thread.Participants,
		Labels:       thread.Labels,
	}

	conv.Name, conv.Avatar = c.displayInfo(thread)

	for _, email := range thread.Messages {
		conv.Messages = append(conv.Messages, c.ToMessage(email))
	}

	if thread.LastMessage != nil {
		last := c.ToMessage(thread.LastMessage)
		conv.Timestamp = last.Timestamp
		conv.LastMessage = formatPreview(last)
		conv.LastMessageSender = last.SenderName
	}

	return conv
}

// ToHeader converts a parsed thread into its list-view projection.
func (c *Converter) ToHeader(thread *parser.Thread) ConversationHeader {
	conv := c.ToConversation(thread)
	return ConversationHeader{
		ID:                conv.ID,
		Name:              conv.Name,
		Avatar:            conv.Avatar,
		LastMessage:       conv.LastMessage,
		LastMessageSender: conv.LastMessageSender,
		Timestamp:         conv.Timestamp,
		MessageCount:      conv.MessageCount,
		UnreadCount:       conv.UnreadCount,
		IsGroup:           conv.IsGroup,
		IsPinned:          conv.IsPinned,
		IsImportant:       conv.IsImportant,
	}
}

// displayInfo derives the conversation name and avatar. A two party
// thread is named after the counterpart and shows its initial. Larger
// threads keep the thread subject, falling back to the other
// participants when the subject is empty, and carry no avatar.
func (c *Converter) displayInfo(thread *parser.Thread) (name, avatar string) {
	others := make([]parser.Participant, 0, len(thread.Participants))
	for _, p := range thread.Participants {
		if !c.isOwn(p.Email) {
			others = append(others, p)
		}
	}

	if len(others) == 1 {
		name = others[0].DisplayName()
		for _, r := range name {
			avatar = string(unicode.ToUpper(r))
			break
		}
		return name, avatar
	}

	return parser.ConversationTitle(thread.Subject, others), ""
}

// formatContent renders the chat bubble text for a message.
func (c *Converter) formatContent(email *parser.Email, isOwn bool) string {
	content := email.Body.Text
	if content == "" && email.Body.HTML != "" {
		content = parser.HTMLToText(email.Body.HTML)
	}
	if content == "" {
		content = email.Snippet
	}

	content = quoteMarkerPattern.ReplaceAllString(content, "")
	content = separatorPattern.ReplaceAllString(content, "---")
	content = blankRunPattern.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	if isOwn {
		var header strings.Builder
		if len(email.To) > 0 {
			header.WriteString("To: " + joinAddresses(email.To) + "\n")
		}
		if len(email.CC) > 0 {
			header.WriteString("CC: " + joinAddresses(email.CC) + "\n")
		}
		if header.Len() > 0 {
			content = header.String() + "\n" + content
		}
	}

	for _, att := range email.Attachments {
		content += fmt.Sprintf("\n📎 %s (%s)", att.Filename, humanize.IBytes(uint64(att.Size)))
	}

	return strings.TrimSpace(content)
}

// formatPreview renders the one-line preview for conversation lists.
func formatPreview(msg Message) string {
	switch msg.Type {
	case TypeImage:
		return "📷 Photo"
	case TypeFile:
		if len(msg.Attachments) > 0 {
			return "📎 " + msg.Attachments[0].Filename
		}
		return "📎 Attachment"
	}

	preview := strings.TrimSpace(msg.Content)
	if idx := strings.IndexByte(preview, '\n'); idx >= 0 {
		preview = preview[:idx]
	}
	runes := []rune(preview)
	if len(runes) > previewMaxLength {
		preview = string(runes[:previewMaxLength]) + "..."
	}
	return preview
}

// messageType classifies a message: image only when the message carries
// exactly one attachment and it is an image.
func messageType(email *parser.Email) MessageType {
	switch {
	case len(email.Attachments) == 1 && email.Attachments[0].IsImage():
		return TypeImage
	case len(email.Attachments) > 0:
		return TypeFile
	default:
		return TypeText
	}
}

func messageStatus(email *parser.Email, isOwn bool) MessageStatus {
	switch {
	case isOwn:
		return StatusSent
	case email.IsRead:
		return StatusRead
	default:
		return StatusDelivered
	}
}

func messagePriority(email *parser.Email) Priority {
	switch {
	case email.IsImportant:
		return PriorityHigh
	case parser.IsAutomatedSender(email.From.Email):
		return PriorityLow
	default:
		return PriorityNormal
	}
}

func joinAddresses(participants []parser.Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName())
	}
	return strings.Join(names, ", ")
}
