package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// MessagePage is one page of a message listing.
type MessagePage struct {
	Messages           []*gmail.Message
	NextPageToken      string
	ResultSizeEstimate int64
}

// ListMessages lists message stubs matching the query.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) (*MessagePage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if maxResults <= 0 || maxResults > maxPageSize {
		maxResults = maxPageSize
	}

	req := c.svc.Messages.List("me").MaxResults(maxResults).Context(ctx)
	if query != "" {
		req = req.Q(query)
	}
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	res, err := req.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return &MessagePage{
		Messages:           res.Messages,
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: res.ResultSizeEstimate,
	}, nil
}

// GetMessage retrieves a full message with payload.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// BatchModifyLabels applies label changes to a set of messages in a
// single API call.
func (c *Client) BatchModifyLabels(ctx context.Context, messageIDs, addLabels, removeLabels []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	err := c.svc.Messages.BatchModify("me", &gmail.BatchModifyMessagesRequest{
		Ids:            messageIDs,
		AddLabelIds:    addLabels,
		RemoveLabelIds: removeLabels,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to modify labels on %d messages: %w", len(messageIDs), err)
	}
	return nil
}

// TrashMessage moves a single message to the trash. The API has no batch
// trash call; callers fan out per message.
func (c *Client) TrashMessage(ctx context.Context, messageID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if _, err := c.svc.Messages.Trash("me", messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to trash message %s: %w", messageID, err)
	}
	return nil
}

// UnreadCount returns Gmail's estimate of unread inbox messages.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	res, err := c.svc.Messages.List("me").Q("is:unread in:inbox").MaxResults(1).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return res.ResultSizeEstimate, nil
}
