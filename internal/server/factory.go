package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gapi "google.golang.org/api/gmail/v1"

	"github.com/Twe-ux/arc-messenger/internal/chat"
	"github.com/Twe-ux/arc-messenger/internal/gmail"
	"github.com/Twe-ux/arc-messenger/internal/inbox"
	"github.com/Twe-ux/arc-messenger/internal/store"
)

// InboxService is the slice of the inbox service the handlers consume.
// *inbox.Service satisfies it; tests substitute a fake.
type InboxService interface {
	Conversations(ctx context.Context, opts inbox.ListOptions) (*inbox.ConversationList, error)
	ConversationMessages(ctx context.Context, threadID string) (*inbox.ConversationDetail, error)
	SearchConversations(ctx context.Context, query string, max int64) ([]chat.ConversationHeader, error)
	Messages(ctx context.Context, opts inbox.ListOptions) ([]chat.Message, error)
	Correspondents(ctx context.Context, opts inbox.ListOptions) ([]chat.Correspondent, error)
	MarkThreadRead(ctx context.Context, threadID string) error
	MarkThreadUnread(ctx context.Context, threadID string) error
	StarThread(ctx context.Context, threadID string, starred bool) error
	ArchiveThread(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID string) error
	UnreadCount(ctx context.Context) (int64, error)
	Labels(ctx context.Context) ([]*gapi.Label, error)
	Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	Profile(ctx context.Context) (*gapi.Profile, error)
	ChangedMessagesSince(ctx context.Context, historyID uint64) (*gmail.HistoryDiff, error)
	StartWatch(ctx context.Context, topicName string) (*gapi.WatchResponse, error)
	StopWatch(ctx context.Context) error
}

// ServiceFactory builds an inbox service for a user on demand.
type ServiceFactory interface {
	For(ctx context.Context, userEmail string) (InboxService, error)
}

// gmailServiceFactory is the production factory: stored tokens in, live
// Gmail-backed inbox service out.
type gmailServiceFactory struct {
	store  *store.Store
	oauth  gmail.Config
	logger *slog.Logger
}

// NewGmailServiceFactory wires the user store and OAuth credentials into
// a ServiceFactory.
func NewGmailServiceFactory(st *store.Store, oauth gmail.Config, logger *slog.Logger) ServiceFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &gmailServiceFactory{store: st, oauth: oauth, logger: logger}
}

func (f *gmailServiceFactory) For(ctx context.Context, userEmail string) (InboxService, error) {
	user, err := f.store.GetUser(ctx, userEmail)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, inbox.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inbox.ErrIntegrationUnavailable, err)
	}

	token := user.Token()
	if token == nil {
		return nil, inbox.ErrNotAuthenticated
	}

	client, err := gmail.New(ctx, f.oauth, user.Email, token, f.store)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inbox.ErrIntegrationUnavailable, err)
	}

	return inbox.NewService(client, f.logger), nil
}
