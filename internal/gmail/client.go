package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// defaultRateLimit caps outgoing Gmail API calls per second. Gmail
	// grants 250 quota units per user per second; thread fetches cost
	// 10 units each.
	defaultRateLimit = rate.Limit(20)
	defaultRateBurst = 40
)

// Client wraps the Gmail Users service for a single authenticated user.
type Client struct {
	svc       *gmail.UsersService
	userEmail string
	limiter   *rate.Limiter
}

// UserEmail returns the email address this client is bound to.
func (c *Client) UserEmail() string {
	return c.userEmail
}

// New creates a Gmail client for the given user from stored OAuth tokens.
// Refreshed tokens are written back through the saver.
func New(ctx context.Context, cfg Config, userEmail string, token *oauth2.Token, saver TokenSaver) (*Client, error) {
	if token == nil {
		return nil, fmt.Errorf("no OAuth token for user")
	}

	source := newPersistingTokenSource(ctx, cfg, userEmail, token, saver)
	svc, err := gmail.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:       svc.Users,
		userEmail: userEmail,
		limiter:   rate.NewLimiter(defaultRateLimit, defaultRateBurst),
	}, nil
}

// wait blocks until the client-side rate limiter admits another call.
func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Profile returns the Gmail profile of the authenticated user.
func (c *Client) Profile(ctx context.Context) (*gmail.Profile, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	profile, err := c.svc.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// TestConnection verifies the stored credentials by fetching the profile.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Profile(ctx)
	return err
}
