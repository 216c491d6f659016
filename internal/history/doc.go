// Package history tracks each user's Gmail history ID, the watermark the
// push-notification webhook diffs against. The default backend is the
// SQLite user store; the Valkey backend serves deployments where several
// instances must share the watermark.
package history
