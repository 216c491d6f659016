package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// HistoryDiff summarizes mailbox changes since a stored history ID.
type HistoryDiff struct {
	// AddedMessageIDs are messages that appeared since the start ID.
	AddedMessageIDs []string

	// NewHistoryID is the latest history ID observed; store it for the
	// next diff.
	NewHistoryID uint64
}

// ListHistorySince walks history records after startHistoryID and collects
// newly added message IDs.
func (c *Client) ListHistorySince(ctx context.Context, startHistoryID uint64) (*HistoryDiff, error) {
	diff := &HistoryDiff{NewHistoryID: startHistoryID}
	seen := make(map[string]bool)

	pageToken := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		req := c.svc.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list history from %d: %w", startHistoryID, err)
		}

		if res.HistoryId > diff.NewHistoryID {
			diff.NewHistoryID = res.HistoryId
		}
		for _, h := range res.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil || seen[added.Message.Id] {
					continue
				}
				seen[added.Message.Id] = true
				diff.AddedMessageIDs = append(diff.AddedMessageIDs, added.Message.Id)
			}
		}

		if res.NextPageToken == "" {
			return diff, nil
		}
		pageToken = res.NextPageToken
	}
}

// Watch subscribes the mailbox to push notifications on the given Pub/Sub
// topic and returns the expiration and baseline history ID.
func (c *Client) Watch(ctx context.Context, topicName string) (*gmail.WatchResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.svc.Watch("me", &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to start mailbox watch: %w", err)
	}
	return res, nil
}

// StopWatch cancels push notifications for the mailbox.
func (c *Client) StopWatch(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if err := c.svc.Stop("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to stop mailbox watch: %w", err)
	}
	return nil
}
