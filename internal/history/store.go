package history

import "context"

// Store persists per-user Gmail history baselines.
// *store.Store implements it for single-instance deployments.
type Store interface {
	HistoryID(ctx context.Context, userEmail string) (uint64, error)
	SetHistoryID(ctx context.Context, userEmail string, historyID uint64) error
}
