package gmail

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

// Scopes requested from Google for the messaging backend.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Config carries the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig builds the oauth2 configuration for the Google endpoint.
func (c Config) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// TokenSaver persists a refreshed token for a user. Implemented by the
// user store so refreshed access tokens survive process restarts.
type TokenSaver interface {
	SaveToken(ctx context.Context, userEmail string, token *oauth2.Token) error
}

// refreshGroup serializes concurrent token refreshes per user across all
// clients in the process.
var refreshGroup singleflight.Group

// persistingTokenSource wraps an oauth2.TokenSource and writes every
// refreshed token back through the TokenSaver. Refreshes for the same
// user are collapsed into a single upstream call.
type persistingTokenSource struct {
	userEmail string
	source    oauth2.TokenSource
	saver     TokenSaver

	mu   sync.Mutex
	last *oauth2.Token
}

func newPersistingTokenSource(ctx context.Context, cfg Config, userEmail string, token *oauth2.Token, saver TokenSaver) oauth2.TokenSource {
	return &persistingTokenSource{
		userEmail: userEmail,
		source:    cfg.OAuthConfig().TokenSource(ctx, token),
		saver:     saver,
		last:      token,
	}
}

// Token returns a valid token, refreshing through the singleflight group
// when the cached one has expired.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	cached := s.last
	s.mu.Unlock()

	if cached != nil && cached.Valid() {
		return cached, nil
	}

	v, err, _ := refreshGroup.Do(s.userEmail, func() (any, error) {
		token, err := s.source.Token()
		if err != nil {
			return nil, err
		}
		if s.saver != nil {
			// Persistence failure must not break the request; the
			// refreshed token still works for this process.
			_ = s.saver.SaveToken(context.Background(), s.userEmail, token)
		}
		return token, nil
	})
	if err != nil {
		return nil, err
	}

	token := v.(*oauth2.Token)
	s.mu.Lock()
	s.last = token
	s.mu.Unlock()
	return token, nil
}
