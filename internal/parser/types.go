package parser

import "time"

// Well-known Gmail system label IDs.
const (
	LabelUnread    = "UNREAD"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelInbox     = "INBOX"
	LabelTrash     = "TRASH"
	LabelSent      = "SENT"
)

const (
	// DefaultMaxAttachmentSize is the hard ceiling above which an
	// attachment is dropped from the parsed message entirely (25MB).
	DefaultMaxAttachmentSize = 25 * 1024 * 1024

	// DefaultInlineDataLimit is the size up to which base64 part data is
	// retained on the parsed attachment (1MB). Larger attachments keep
	// only their metadata and are fetched on demand.
	DefaultInlineDataLimit = 1024 * 1024
)

// Options control how messages are parsed.
type Options struct {
	// IncludeAttachments enables attachment extraction.
	IncludeAttachments bool

	// MaxAttachmentSize overrides DefaultMaxAttachmentSize when > 0.
	MaxAttachmentSize int64

	// InlineDataLimit overrides DefaultInlineDataLimit when > 0.
	InlineDataLimit int64
}

func (o Options) maxAttachmentSize() int64 {
	if o.MaxAttachmentSize > 0 {
		return o.MaxAttachmentSize
	}
	return DefaultMaxAttachmentSize
}

func (o Options) inlineDataLimit() int64 {
	if o.InlineDataLimit > 0 {
		return o.InlineDataLimit
	}
	return DefaultInlineDataLimit
}

// Participant is a single address from a From/To/Cc header.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the participant's name, falling back to the email.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Body holds the decoded message body in both representations.
// HTML is empty when the message carried no HTML part; it is never
// synthesized from text. Text is derived from HTML when only HTML exists.
type Body struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// Attachment describes a single attachment part.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`

	// Data holds the part's base64url payload when it was small enough
	// to be carried inline. Empty otherwise.
	Data string `json:"data,omitempty"`
}

// IsImage reports whether the attachment is an image by MIME type.
func (a Attachment) IsImage() bool {
	return len(a.MimeType) >= 6 && a.MimeType[:6] == "image/"
}

// Email is a fully parsed Gmail message.
type Email struct {
	ID          string        `json:"id"`
	ThreadID    string        `json:"threadId"`
	From        Participant   `json:"from"`
	To          []Participant `json:"to"`
	CC          []Participant `json:"cc,omitempty"`
	Subject     string        `json:"subject"`
	Date        time.Time     `json:"date"`
	Body        Body          `json:"body"`
	Snippet     string        `json:"snippet"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	Labels      []string      `json:"labels"`
	IsRead      bool          `json:"isRead"`
	IsStarred   bool          `json:"isStarred"`
	IsImportant bool          `json:"isImportant"`
}

// HasLabel reports whether the email carries the given label ID.
func (e *Email) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Thread is a parsed Gmail conversation thread.
type Thread struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Messages     []*Email      `json:"messages"`
	Participants []Participant `json:"participants"`
	LastMessage  *Email        `json:"lastMessage"`
	Snippet      string        `json:"snippet"`
	MessageCount int           `json:"messageCount"`
	UnreadCount  int           `json:"unreadCount"`
	IsStarred    bool          `json:"isStarred"`
	IsImportant  bool          `json:"isImportant"`
	Labels       []string      `json:"labels"`
}
