package chat

import (
	"time"

	"github.com/Twe-ux/arc-messenger/internal/parser"
)

// MessageType classifies the primary content of a chat message.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// MessageStatus mirrors chat delivery states onto email read state.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Priority ranks a message for display emphasis.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Message is a single chat bubble derived from one email.
type Message struct {
	ID          string              `json:"id"`
	ThreadID    string              `json:"threadId"`
	Content     string              `json:"content"`
	Timestamp   time.Time           `json:"timestamp"`
	IsOwn       bool                `json:"isOwn"`
	SenderName  string              `json:"senderName"`
	SenderEmail string              `json:"senderEmail"`
	Type        MessageType         `json:"type"`
	Status      MessageStatus       `json:"status"`
	Priority    Priority            `json:"priority"`
	IsStarred   bool                `json:"isStarred"`
	Attachments []parser.Attachment `json:"attachments,omitempty"`
}

// Conversation is the chat view of a whole thread, messages included.
type Conversation struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Avatar            string               `json:"avatar"`
	LastMessage       string               `json:"lastMessage"`
	LastMessageSender string               `json:"lastMessageSender"`
	Timestamp         time.Time            `json:"timestamp"`
	MessageCount      int                  `json:"messageCount"`
	UnreadCount       int                  `json:"unreadCount"`
	IsGroup           bool                 `json:"isGroup"`
	IsPinned          bool                 `json:"isPinned"`
	IsImportant       bool                 `json:"isImportant"`
	Participants      []parser.Participant `json:"participants"`
	Messages          []Message            `json:"messages,omitempty"`
	Labels            []string             `json:"labels"`
}

// ConversationHeader is the list-view projection of a conversation,
// without the message bodies.
type ConversationHeader struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Avatar            string    `json:"avatar"`
	LastMessage       string    `json:"lastMessage"`
	LastMessageSender string    `json:"lastMessageSender"`
	Timestamp         time.Time `json:"timestamp"`
	MessageCount      int       `json:"messageCount"`
	UnreadCount       int       `json:"unreadCount"`
	IsGroup           bool      `json:"isGroup"`
	IsPinned          bool      `json:"isPinned"`
	IsImportant       bool      `json:"isImportant"`
}

// Correspondent aggregates all messages received from one sender.
type Correspondent struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	LastMessage  Message   `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	UnreadCount  int       `json:"unreadCount"`
	ThreadID     string    `json:"threadId,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}
