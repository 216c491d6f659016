// Package store persists per-user state in a local SQLite database:
// OAuth tokens, UI preferences, presence status and the Gmail history ID
// used for incremental sync. The database runs in WAL mode so concurrent
// request handlers can read while token refreshes write.
package store
