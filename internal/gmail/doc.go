// Package gmail wraps the Gmail API client used by the application.
//
// The Client is a thin, typed facade over google.golang.org/api/gmail/v1.
// It owns authentication (an oauth2 token source that persists refreshed
// tokens back to the user store), client-side rate limiting, and the small
// set of API calls the application needs: thread and message listing and
// retrieval, batched label mutation, per-message trash, attachment
// download, label listing, profile lookup and history tracking.
//
// The Client performs no parsing. Raw API structs go out of this package
// and are normalized by the parser package.
//
// Example:
//
//	client, err := gmail.New(ctx, gmail.Config{
//	    ClientID:     cfg.GoogleClientID,
//	    ClientSecret: cfg.GoogleClientSecret,
//	}, userEmail, token, saver)
//	if err != nil {
//	    return err
//	}
//	page, err := client.ListThreads(ctx, "in:inbox", 20, "")
package gmail
