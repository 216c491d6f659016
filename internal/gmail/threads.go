package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

// maxPageSize is the Gmail API's per-page ceiling for list calls.
const maxPageSize = 100

// ThreadPage is one page of a thread listing.
type ThreadPage struct {
	Threads            []*gmail.Thread
	NextPageToken      string
	ResultSizeEstimate int64
}

// ListThreads lists thread stubs matching the query. The returned threads
// carry IDs and snippets only; fetch them with GetThread for full data.
func (c *Client) ListThreads(ctx context.Context, query string, maxResults int64, pageToken string) (*ThreadPage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if maxResults <= 0 || maxResults > maxPageSize {
		maxResults = maxPageSize
	}

	req := c.svc.Threads.List("me").MaxResults(maxResults).Context(ctx)
	if query != "" {
		req = req.Q(query)
	}
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	res, err := req.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	return &ThreadPage{
		Threads:            res.Threads,
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: res.ResultSizeEstimate,
	}, nil
}

// GetThread retrieves a full thread with all message payloads.
func (c *Client) GetThread(ctx context.Context, threadID string) (*gmail.Thread, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	thread, err := c.svc.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return thread, nil
}
