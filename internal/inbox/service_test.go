package inbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gapi "google.golang.org/api/gmail/v1"

	"github.com/Twe-ux/arc-messenger/internal/gmail"
)

type batchCall struct {
	ids    []string
	add    []string
	remove []string
}

// fakeProvider implements Provider in memory for service tests.
type fakeProvider struct {
	mu sync.Mutex

	userEmail string
	threads   map[string]*gapi.Thread
	listOrder []string
	messages  map[string]*gapi.Message

	batchCalls   []batchCall
	trashed      []string
	watchTopics  []string
	watchStopped bool

	failGetThread map[string]error
	listErr       error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		userEmail: "me@example.com",
		threads:   make(map[string]*gapi.Thread),
		messages:  make(map[string]*gapi.Message),
	}
}

func (f *fakeProvider) UserEmail() string { return f.userEmail }

func (f *fakeProvider) ListThreads(_ context.Context, _ string, _ int64, _ string) (*gmail.ThreadPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := &gmail.ThreadPage{NextPageToken: "next"}
	for _, id := range f.listOrder {
		page.Threads = append(page.Threads, &gapi.Thread{Id: id})
	}
	return page, nil
}

func (f *fakeProvider) GetThread(_ context.Context, threadID string) (*gapi.Thread, error) {
	if err := f.failGetThread[threadID]; err != nil {
		return nil, err
	}
	thread, ok := f.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	return thread, nil
}

func (f *fakeProvider) ListMessages(_ context.Context, _ string, _ int64, _ string) (*gmail.MessagePage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := &gmail.MessagePage{}
	for _, id := range f.listOrder {
		page.Messages = append(page.Messages, f.messages[id])
	}
	return page, nil
}

func (f *fakeProvider) GetMessage(_ context.Context, messageID string) (*gapi.Message, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s not found", messageID)
	}
	return msg, nil
}

func (f *fakeProvider) BatchModifyLabels(_ context.Context, ids, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, batchCall{ids: ids, add: add, remove: remove})
	return nil
}

func (f *fakeProvider) TrashMessage(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trashed = append(f.trashed, messageID)
	return nil
}

func (f *fakeProvider) GetAttachment(_ context.Context, _, _ string) ([]byte, error) {
	return []byte("data"), nil
}

func (f *fakeProvider) ListLabels(_ context.Context) ([]*gapi.Label, error) {
	return []*gapi.Label{{Id: "INBOX", Name: "INBOX"}}, nil
}

func (f *fakeProvider) Profile(_ context.Context) (*gapi.Profile, error) {
	return &gapi.Profile{EmailAddress: f.userEmail}, nil
}

func (f *fakeProvider) UnreadCount(_ context.Context) (int64, error) {
	return 3, nil
}

func (f *fakeProvider) ListHistorySince(_ context.Context, start uint64) (*gmail.HistoryDiff, error) {
	return &gmail.HistoryDiff{AddedMessageIDs: []string{"m-new"}, NewHistoryID: start + 10}, nil
}

func (f *fakeProvider) Watch(_ context.Context, topicName string) (*gapi.WatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchTopics = append(f.watchTopics, topicName)
	return &gapi.WatchResponse{HistoryId: 900, Expiration: testDate.Add(7 * 24 * time.Hour).UnixMilli()}, nil
}

func (f *fakeProvider) StopWatch(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchStopped = true
	return nil
}

func rawMessage(id, threadID, from, subject, body string, date time.Time, labels ...string) *gapi.Message {
	return &gapi.Message{
		Id:           id,
		ThreadId:     threadID,
		InternalDate: date.UnixMilli(),
		LabelIds:     labels,
		Payload: &gapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gapi.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "me@example.com"},
				{Name: "Subject", Value: subject},
			},
			Body: &gapi.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))},
		},
	}
}

func (f *fakeProvider) addThread(threadID string, msgs ...*gapi.Message) {
	f.threads[threadID] = &gapi.Thread{Id: threadID, Messages: msgs}
	f.listOrder = append(f.listOrder, threadID)
}

var testDate = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestConversations(t *testing.T) {
	provider := newFakeProvider()
	provider.addThread("t1",
		rawMessage("m1", "t1", "alice@example.com", "Re: Alpha", "hello", testDate, "INBOX", "UNREAD"))
	provider.addThread("t2",
		rawMessage("m2", "t2", "bob@example.com", "Beta", "hi", testDate.Add(time.Hour), "INBOX"))
	provider.addThread("t3",
		rawMessage("m3", "t3", "carol@example.com", "Gamma", "hey", testDate.Add(2*time.Hour), "INBOX"))

	svc := NewService(provider, nil)
	list, err := svc.Conversations(context.Background(), ListOptions{Max: 10})
	require.NoError(t, err)

	// Listing order from the provider is preserved, not re-sorted.
	require.Len(t, list.Conversations, 3)
	assert.Equal(t, "t1", list.Conversations[0].ID)
	assert.Equal(t, "t2", list.Conversations[1].ID)
	assert.Equal(t, "t3", list.Conversations[2].ID)
	assert.Equal(t, "next", list.NextPageToken)
	assert.Equal(t, 1, list.Conversations[0].UnreadCount)
}

func TestConversationsFetchFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.addThread("t1", rawMessage("m1", "t1", "a@example.com", "S", "b", testDate))
	provider.addThread("t2", rawMessage("m2", "t2", "b@example.com", "S", "b", testDate))
	provider.failGetThread = map[string]error{"t2": errors.New("boom")}

	svc := NewService(provider, nil)
	_, err := svc.Conversations(context.Background(), ListOptions{})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "t2", callErr.ThreadID)
}

func TestConversationMessages(t *testing.T) {
	provider := newFakeProvider()
	provider.addThread("t1",
		rawMessage("m2", "t1", "alice@example.com", "Re: Topic", "second", testDate.Add(time.Hour), "INBOX"),
		rawMessage("m1", "t1", "me@example.com", "Topic", "first", testDate, "SENT"),
	)

	svc := NewService(provider, nil)
	detail, err := svc.ConversationMessages(context.Background(), "t1")
	require.NoError(t, err)

	// Sorted oldest first regardless of API order.
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "m1", detail.Messages[0].ID)
	assert.True(t, detail.Messages[0].IsOwn)
	assert.Equal(t, "m2", detail.Messages[1].ID)
	// Two-party thread is named after the counterpart.
	assert.Equal(t, "alice@example.com", detail.ThreadInfo.Name)
}

func TestSearchConversationsDeduplicatesThreads(t *testing.T) {
	provider := newFakeProvider()
	provider.addThread("t1",
		rawMessage("m1", "t1", "a@example.com", "S", "b", testDate),
		rawMessage("m2", "t1", "a@example.com", "S", "b2", testDate.Add(time.Minute)),
	)
	provider.messages["m1"] = rawMessage("m1", "t1", "a@example.com", "S", "b", testDate)
	provider.messages["m2"] = rawMessage("m2", "t1", "a@example.com", "S", "b2", testDate)
	provider.listOrder = []string{"m1", "m2"}

	svc := NewService(provider, nil)
	headers, err := svc.SearchConversations(context.Background(), "b", 10)
	require.NoError(t, err)

	require.Len(t, headers, 1)
	assert.Equal(t, "t1", headers[0].ID)
}

func TestThreadMutations(t *testing.T) {
	setup := func() (*fakeProvider, *Service) {
		provider := newFakeProvider()
		provider.addThread("t1",
			rawMessage("m1", "t1", "a@example.com", "S", "b", testDate, "UNREAD"),
			rawMessage("m2", "t1", "a@example.com", "S", "b", testDate, "UNREAD"),
		)
		return provider, NewService(provider, nil)
	}

	t.Run("mark read issues one batch call removing UNREAD", func(t *testing.T) {
		provider, svc := setup()
		require.NoError(t, svc.MarkThreadRead(context.Background(), "t1"))

		require.Len(t, provider.batchCalls, 1)
		call := provider.batchCalls[0]
		assert.Equal(t, []string{"m1", "m2"}, call.ids)
		assert.Empty(t, call.add)
		assert.Equal(t, []string{"UNREAD"}, call.remove)
	})

	t.Run("mark unread adds UNREAD", func(t *testing.T) {
		provider, svc := setup()
		require.NoError(t, svc.MarkThreadUnread(context.Background(), "t1"))

		require.Len(t, provider.batchCalls, 1)
		assert.Equal(t, []string{"UNREAD"}, provider.batchCalls[0].add)
	})

	t.Run("star and unstar", func(t *testing.T) {
		provider, svc := setup()
		require.NoError(t, svc.StarThread(context.Background(), "t1", true))
		require.NoError(t, svc.StarThread(context.Background(), "t1", false))

		require.Len(t, provider.batchCalls, 2)
		assert.Equal(t, []string{"STARRED"}, provider.batchCalls[0].add)
		assert.Equal(t, []string{"STARRED"}, provider.batchCalls[1].remove)
	})

	t.Run("archive removes INBOX", func(t *testing.T) {
		provider, svc := setup()
		require.NoError(t, svc.ArchiveThread(context.Background(), "t1"))

		require.Len(t, provider.batchCalls, 1)
		assert.Equal(t, []string{"INBOX"}, provider.batchCalls[0].remove)
	})

	t.Run("delete trashes each message", func(t *testing.T) {
		provider, svc := setup()
		require.NoError(t, svc.DeleteThread(context.Background(), "t1"))

		assert.Equal(t, []string{"m1", "m2"}, provider.trashed)
		assert.Empty(t, provider.batchCalls)
	})

	t.Run("unknown thread yields CallError", func(t *testing.T) {
		_, svc := setup()
		err := svc.MarkThreadRead(context.Background(), "missing")

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, "missing", callErr.ThreadID)
	})
}

func TestMessagesSortedNewestFirst(t *testing.T) {
	provider := newFakeProvider()
	provider.messages["m1"] = rawMessage("m1", "t1", "a@example.com", "S", "old", testDate)
	provider.messages["m2"] = rawMessage("m2", "t2", "b@example.com", "S", "new", testDate.Add(time.Hour))
	provider.listOrder = []string{"m1", "m2"}

	svc := NewService(provider, nil)
	messages, err := svc.Messages(context.Background(), ListOptions{})
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].ID)
	assert.Equal(t, "m1", messages[1].ID)
}

func TestCorrespondentsExcludeSelf(t *testing.T) {
	provider := newFakeProvider()
	provider.messages["m1"] = rawMessage("m1", "t1", "alice@example.com", "S", "hi", testDate)
	provider.messages["m2"] = rawMessage("m2", "t2", "me@example.com", "S", "mine", testDate.Add(time.Hour))
	provider.listOrder = []string{"m1", "m2"}

	svc := NewService(provider, nil)
	correspondents, err := svc.Correspondents(context.Background(), ListOptions{})
	require.NoError(t, err)

	require.Len(t, correspondents, 1)
	assert.Equal(t, "alice@example.com", correspondents[0].Email)
}

func TestListErrorWrapped(t *testing.T) {
	provider := newFakeProvider()
	provider.listErr = errors.New("quota exceeded")

	svc := NewService(provider, nil)
	_, err := svc.Conversations(context.Background(), ListOptions{})

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestChangedMessagesSince(t *testing.T) {
	svc := NewService(newFakeProvider(), nil)
	diff, err := svc.ChangedMessagesSince(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(110), diff.NewHistoryID)
	assert.Equal(t, []string{"m-new"}, diff.AddedMessageIDs)
}

func TestWatchLifecycle(t *testing.T) {
	provider := newFakeProvider()
	svc := NewService(provider, nil)
	ctx := context.Background()

	res, err := svc.StartWatch(ctx, "projects/p/topics/mail")
	require.NoError(t, err)
	assert.Equal(t, uint64(900), res.HistoryId)
	assert.Equal(t, []string{"projects/p/topics/mail"}, provider.watchTopics)

	require.NoError(t, svc.StopWatch(ctx))
	assert.True(t, provider.watchStopped)
}
