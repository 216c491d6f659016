package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"
)

// ErrUserNotFound is returned when no row exists for the given email.
var ErrUserNotFound = errors.New("user not found")

// User is one row of the users table.
type User struct {
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	Preferences  json.RawMessage
	Status       string
	UpdatedAt    time.Time
}

// Token rebuilds the oauth2 token from the stored columns. Returns nil
// when the user has never connected Gmail.
func (u *User) Token() *oauth2.Token {
	if u.AccessToken == "" && u.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		Expiry:       u.TokenExpiry,
		TokenType:    "Bearer",
	}
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at the given path and migrates it.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps readers unblocked while token refreshes write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	email         TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry  TEXT NOT NULL DEFAULT '',
	preferences   TEXT NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL DEFAULT 'offline',
	updated_at    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS history_ids (
	email      TEXT PRIMARY KEY,
	history_id INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUser loads a user row by email.
func (s *Store) GetUser(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT email, access_token, refresh_token, token_expiry, preferences, status, updated_at
		FROM users WHERE email = ?`, normalizeEmail(email))

	var u User
	var expiry, updated, prefs string
	err := row.Scan(&u.Email, &u.AccessToken, &u.RefreshToken, &expiry, &prefs, &u.Status, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	u.Preferences = json.RawMessage(prefs)
	if expiry != "" {
		u.TokenExpiry, _ = time.Parse(time.RFC3339, expiry)
	}
	if updated != "" {
		u.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	}
	return &u, nil
}

// SaveToken upserts the OAuth token columns for a user. Implements the
// gmail client's TokenSaver so refreshed tokens survive restarts.
func (s *Store) SaveToken(ctx context.Context, email string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("nil token")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, access_token, refresh_token, token_expiry, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token != ''
				THEN excluded.refresh_token ELSE users.refresh_token END,
			token_expiry  = excluded.token_expiry,
			updated_at    = excluded.updated_at
	`, normalizeEmail(email), token.AccessToken, token.RefreshToken,
		token.Expiry.UTC().Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// ClearTokens drops the stored tokens for a user (disconnect).
func (s *Store) ClearTokens(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET access_token = '', refresh_token = '', token_expiry = ''
		WHERE email = ?`, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Preferences returns the raw preferences JSON for a user.
func (s *Store) Preferences(ctx context.Context, email string) (json.RawMessage, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return u.Preferences, nil
}

// SetPreferences replaces the preferences JSON for a user.
func (s *Store) SetPreferences(ctx context.Context, email string, prefs json.RawMessage) error {
	if !json.Valid(prefs) {
		return fmt.Errorf("preferences are not valid JSON")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, preferences, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			preferences = excluded.preferences,
			updated_at  = excluded.updated_at
	`, normalizeEmail(email), string(prefs), now)
	if err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}

// SetStatus records the user's presence status.
func (s *Store) SetStatus(ctx context.Context, email, status string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at
	`, normalizeEmail(email), status, now)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// HistoryID returns the stored Gmail history baseline for a user, zero
// when none has been recorded.
func (s *Store) HistoryID(ctx context.Context, email string) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT history_id FROM history_ids WHERE email = ?", normalizeEmail(email)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load history id: %w", err)
	}
	return id, nil
}

// SetHistoryID stores the Gmail history baseline for a user. The baseline
// only moves forward; a stale writer cannot rewind it.
func (s *Store) SetHistoryID(ctx context.Context, email string, historyID uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_ids (email, history_id) VALUES (?, ?)
		ON CONFLICT(email) DO UPDATE SET history_id = excluded.history_id
		WHERE excluded.history_id > history_ids.history_id
	`, normalizeEmail(email), historyID)
	if err != nil {
		return fmt.Errorf("set history id: %w", err)
	}
	return nil
}
