package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// ListLabels returns all labels in the user's mailbox.
func (c *Client) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return res.Labels, nil
}
