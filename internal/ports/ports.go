// Package ports holds the interfaces the core consumes from its
// external collaborators (spec §1): persistence, cache, and the
// domain-facing service contracts used by the wire-protocol router
// and the admin HTTP surface.
package ports

import (
	"context"
	"time"
)

// Cache is a best-effort key/value cache (Redis-backed in production;
// the server runs with no cache when Redis is unavailable). Never
// authoritative: the entity store (internal/store) is.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}

// EntityWriter is the persistent key/value store abstraction the
// core consumes (spec §1b). Implementations flush full-table
// snapshots; see internal/adapter/persistence for the JSON-file
// implementation required by spec §6.
type EntityWriter interface {
	// Flush persists the full keyed table for one entity kind,
	// identified by name (e.g. "users", "piles", "bills").
	Flush(name string, rows map[string]interface{}) error
}
