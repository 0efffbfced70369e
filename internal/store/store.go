package store

import (
	"context"

	"github.com/mkravets/relaychat-server/internal/chat"
)

// HistoryStore handles the bounded, expiring chat history log.
type HistoryStore interface {
	// Append adds a message to the tail of the history log, trims the log
	// to the configured maximum and resets the log's expiry, all as one
	// atomic operation at the store layer.
	Append(ctx context.Context, msg chat.Message) error

	// Recent returns up to limit most-recent messages in chronological
	// order (oldest first). A store failure degrades to an empty slice;
	// it is logged, never returned to the caller.
	Recent(ctx context.Context, limit int) []chat.Message
}

// PresenceStore handles the cluster-wide set of active users.
type PresenceStore interface {
	// Add upserts a user into the active set, keyed by user ID. Idempotent.
	Add(ctx context.Context, user chat.User) error

	// Remove deletes the user's entry. No-op when the user is absent.
	Remove(ctx context.Context, user chat.User) error

	// ListActive returns the active users, unordered. A store failure
	// degrades to an empty slice; it is logged, never returned.
	ListActive(ctx context.Context) []chat.User

	// Clear removes every entry from the active set. Used by the startup
	// reconciliation pass, since no liveness signal survives a restart.
	Clear(ctx context.Context) error
}

// Store aggregates the relay's storage interfaces.
type Store interface {
	HistoryStore
	PresenceStore

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Close closes the underlying store connection.
	Close() error
}
