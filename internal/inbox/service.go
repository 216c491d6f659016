package inbox

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
	gapi "google.golang.org/api/gmail/v1"

	"github.com/Twe-ux/arc-messenger/internal/chat"
	"github.com/Twe-ux/arc-messenger/internal/gmail"
	"github.com/Twe-ux/arc-messenger/internal/logging"
	"github.com/Twe-ux/arc-messenger/internal/parser"
)

// defaultFetchConcurrency bounds the concurrent full-thread fetches
// behind one listing call.
const defaultFetchConcurrency = 8

// Provider is the slice of the Gmail client the service depends on.
// *gmail.Client satisfies it.
type Provider interface {
	UserEmail() string
	ListThreads(ctx context.Context, query string, maxResults int64, pageToken string) (*gmail.ThreadPage, error)
	GetThread(ctx context.Context, threadID string) (*gapi.Thread, error)
	ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) (*gmail.MessagePage, error)
	GetMessage(ctx context.Context, messageID string) (*gapi.Message, error)
	BatchModifyLabels(ctx context.Context, messageIDs, addLabels, removeLabels []string) error
	TrashMessage(ctx context.Context, messageID string) error
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	ListLabels(ctx context.Context) ([]*gapi.Label, error)
	Profile(ctx context.Context) (*gapi.Profile, error)
	UnreadCount(ctx context.Context) (int64, error)
	ListHistorySince(ctx context.Context, startHistoryID uint64) (*gmail.HistoryDiff, error)
	Watch(ctx context.Context, topicName string) (*gapi.WatchResponse, error)
	StopWatch(ctx context.Context) error
}

// Service implements the application-level inbox operations for one user.
type Service struct {
	provider    Provider
	converter   *chat.Converter
	logger      *slog.Logger
	parseOpts   parser.Options
	concurrency int
}

// NewService creates a Service bound to the provider's user.
func NewService(provider Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:    provider,
		converter:   chat.NewConverter(provider.UserEmail()),
		logger:      logging.WithService(logger, "inbox"),
		parseOpts:   parser.Options{IncludeAttachments: true},
		concurrency: defaultFetchConcurrency,
	}
}

// ListOptions select and page a conversation or message listing.
type ListOptions struct {
	Query     string
	Label     string
	Max       int64
	PageToken string
}

func (o ListOptions) gmailQuery() string {
	switch {
	case o.Query != "":
		return o.Query
	case o.Label != "":
		return "label:" + o.Label
	default:
		return "in:inbox"
	}
}

// ConversationList is one page of conversation headers.
type ConversationList struct {
	Conversations []chat.ConversationHeader `json:"conversations"`
	NextPageToken string                    `json:"nextPageToken,omitempty"`
}

// Conversations lists conversation headers for the user's mailbox.
// Thread stubs come from one list call; full threads are fetched with
// bounded concurrency and listing order is preserved.
func (s *Service) Conversations(ctx context.Context, opts ListOptions) (*ConversationList, error) {
	page, err := s.provider.ListThreads(ctx, opts.gmailQuery(), opts.Max, opts.PageToken)
	if err != nil {
		return nil, callErr("list conversations", "", "", err)
	}

	threads, err := s.fetchThreads(ctx, threadIDs(page.Threads))
	if err != nil {
		return nil, err
	}

	list := &ConversationList{NextPageToken: page.NextPageToken}
	for _, thread := range threads {
		if thread == nil {
			continue
		}
		list.Conversations = append(list.Conversations, s.converter.ToHeader(thread))
	}
	return list, nil
}

// ConversationDetail is a full conversation with its messages sorted
// oldest first.
type ConversationDetail struct {
	ThreadInfo chat.ConversationHeader `json:"threadInfo"`
	Messages   []chat.Message          `json:"messages"`
}

// ConversationMessages retrieves one conversation with all messages.
func (s *Service) ConversationMessages(ctx context.Context, threadID string) (*ConversationDetail, error) {
	raw, err := s.provider.GetThread(ctx, threadID)
	if err != nil {
		return nil, callErr("get conversation", threadID, "", err)
	}

	thread := parser.ParseThread(raw, s.parseOpts)
	conv := s.converter.ToConversation(thread)

	sort.SliceStable(conv.Messages, func(i, j int) bool {
		return conv.Messages[i].Timestamp.Before(conv.Messages[j].Timestamp)
	})

	return &ConversationDetail{
		ThreadInfo: s.converter.ToHeader(thread),
		Messages:   conv.Messages,
	}, nil
}

// SearchConversations finds conversations whose messages match the query.
// Matching messages are deduplicated to their threads.
func (s *Service) SearchConversations(ctx context.Context, query string, max int64) ([]chat.ConversationHeader, error) {
	page, err := s.provider.ListMessages(ctx, query, max, "")
	if err != nil {
		return nil, callErr("search conversations", "", "", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, msg := range page.Messages {
		if msg.ThreadId == "" || seen[msg.ThreadId] {
			continue
		}
		seen[msg.ThreadId] = true
		ids = append(ids, msg.ThreadId)
	}

	threads, err := s.fetchThreads(ctx, ids)
	if err != nil {
		return nil, err
	}

	var headers []chat.ConversationHeader
	for _, thread := range threads {
		if thread == nil {
			continue
		}
		headers = append(headers, s.converter.ToHeader(thread))
	}
	return headers, nil
}

// Messages returns a flat chat-message listing, newest first.
func (s *Service) Messages(ctx context.Context, opts ListOptions) ([]chat.Message, error) {
	page, err := s.provider.ListMessages(ctx, opts.gmailQuery(), opts.Max, opts.PageToken)
	if err != nil {
		return nil, callErr("list messages", "", "", err)
	}

	messages := make([]chat.Message, len(page.Messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, stub := range page.Messages {
		g.Go(func() error {
			raw, err := s.provider.GetMessage(gctx, stub.Id)
			if err != nil {
				return callErr("get message", "", stub.Id, err)
			}
			if email := parser.ParseMessage(raw, s.parseOpts); email != nil {
				messages[i] = s.converter.ToMessage(email)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	return messages, nil
}

// Correspondents groups the user's recent messages by sender for the
// contact sidebar.
func (s *Service) Correspondents(ctx context.Context, opts ListOptions) ([]chat.Correspondent, error) {
	messages, err := s.Messages(ctx, opts)
	if err != nil {
		return nil, err
	}
	return chat.GroupCorrespondents(messages, s.provider.UserEmail()), nil
}

// MarkThreadRead clears the unread state on every message of the thread
// with a single batched call.
func (s *Service) MarkThreadRead(ctx context.Context, threadID string) error {
	return s.modifyThread(ctx, "mark thread read", threadID, nil, []string{parser.LabelUnread})
}

// MarkThreadUnread restores the unread state on every message of the thread.
func (s *Service) MarkThreadUnread(ctx context.Context, threadID string) error {
	return s.modifyThread(ctx, "mark thread unread", threadID, []string{parser.LabelUnread}, nil)
}

// StarThread stars or unstars every message of the thread.
func (s *Service) StarThread(ctx context.Context, threadID string, starred bool) error {
	if starred {
		return s.modifyThread(ctx, "star thread", threadID, []string{parser.LabelStarred}, nil)
	}
	return s.modifyThread(ctx, "unstar thread", threadID, nil, []string{parser.LabelStarred})
}

// ArchiveThread removes the thread from the inbox.
func (s *Service) ArchiveThread(ctx context.Context, threadID string) error {
	return s.modifyThread(ctx, "archive thread", threadID, nil, []string{parser.LabelInbox})
}

// DeleteThread moves every message of the thread to the trash. The API
// has no batch trash, so this fans out per message.
func (s *Service) DeleteThread(ctx context.Context, threadID string) error {
	ids, err := s.threadMessageIDs(ctx, "delete thread", threadID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.provider.TrashMessage(ctx, id); err != nil {
			return callErr("delete thread", threadID, id, err)
		}
	}
	s.logger.Info("thread deleted",
		logging.Operation("delete thread"),
		slog.String("thread_id", threadID),
		slog.Int("messages", len(ids)))
	return nil
}

// UnreadCount reports the number of unread inbox messages.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	count, err := s.provider.UnreadCount(ctx)
	if err != nil {
		return 0, callErr("unread count", "", "", err)
	}
	return count, nil
}

// Labels lists the mailbox labels.
func (s *Service) Labels(ctx context.Context) ([]*gapi.Label, error) {
	labels, err := s.provider.ListLabels(ctx)
	if err != nil {
		return nil, callErr("list labels", "", "", err)
	}
	return labels, nil
}

// Attachment downloads a single attachment body.
func (s *Service) Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	data, err := s.provider.GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return nil, callErr("get attachment", "", messageID, err)
	}
	return data, nil
}

// Profile returns the provider profile of the signed-in user.
func (s *Service) Profile(ctx context.Context) (*gapi.Profile, error) {
	profile, err := s.provider.Profile(ctx)
	if err != nil {
		return nil, callErr("get profile", "", "", err)
	}
	return profile, nil
}

// StartWatch subscribes the mailbox to push notifications on the given
// Pub/Sub topic. The response carries the baseline history ID for
// subsequent diffs.
func (s *Service) StartWatch(ctx context.Context, topicName string) (*gapi.WatchResponse, error) {
	res, err := s.provider.Watch(ctx, topicName)
	if err != nil {
		return nil, callErr("start watch", "", "", err)
	}
	s.logger.Info("mailbox watch registered",
		logging.Operation("start watch"),
		slog.Uint64("history_id", res.HistoryId))
	return res, nil
}

// StopWatch cancels mailbox push notifications.
func (s *Service) StopWatch(ctx context.Context) error {
	if err := s.provider.StopWatch(ctx); err != nil {
		return callErr("stop watch", "", "", err)
	}
	return nil
}

// ChangedMessagesSince diffs the mailbox history against a stored history
// ID and returns the added message IDs plus the new baseline.
func (s *Service) ChangedMessagesSince(ctx context.Context, historyID uint64) (*gmail.HistoryDiff, error) {
	diff, err := s.provider.ListHistorySince(ctx, historyID)
	if err != nil {
		return nil, callErr("list history", "", "", err)
	}
	return diff, nil
}

// modifyThread resolves the thread's member messages and applies the
// label change in exactly one batched call.
func (s *Service) modifyThread(ctx context.Context, op, threadID string, add, remove []string) error {
	ids, err := s.threadMessageIDs(ctx, op, threadID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.provider.BatchModifyLabels(ctx, ids, add, remove); err != nil {
		return callErr(op, threadID, "", err)
	}
	s.logger.Debug("thread labels modified",
		logging.Operation(op),
		slog.String("thread_id", threadID),
		slog.Int("messages", len(ids)))
	return nil
}

func (s *Service) threadMessageIDs(ctx context.Context, op, threadID string) ([]string, error) {
	thread, err := s.provider.GetThread(ctx, threadID)
	if err != nil {
		return nil, callErr(op, threadID, "", err)
	}
	ids := make([]string, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// fetchThreads retrieves and parses full threads with bounded
// concurrency, preserving input order.
func (s *Service) fetchThreads(ctx context.Context, ids []string) ([]*parser.Thread, error) {
	threads := make([]*parser.Thread, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			raw, err := s.provider.GetThread(gctx, id)
			if err != nil {
				return callErr("get thread", id, "", err)
			}
			threads[i] = parser.ParseThread(raw, s.parseOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return threads, nil
}

func threadIDs(threads []*gapi.Thread) []string {
	ids := make([]string, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.Id)
	}
	return ids
}
