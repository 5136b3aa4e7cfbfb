package domain

import (
	"context"
	"io"
	"time"
)

// SnapshotStore persists the net-worth sync history that the unit accounting
// engine replays.
type SnapshotStore interface {
	Append(ctx context.Context, point NetWorthPoint) error
	// ListAsc returns all points ordered by timestamp ascending.
	ListAsc(ctx context.Context) ([]NetWorthPoint, error)
	// ListBefore returns points older than cutoff, oldest first, up to limit.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]NetWorthPoint, error)
	// DeleteBefore removes points older than cutoff and returns the count.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Latest(ctx context.Context) (NetWorthPoint, error)
}

// CashFlowStore persists deposit and withdrawal events.
type CashFlowStore interface {
	Create(ctx context.Context, cf CashFlow) error
	// ListAsc returns all cash flows ordered by timestamp ascending.
	ListAsc(ctx context.Context) ([]CashFlow, error)
}

// ExecutionStore persists execution records.
type ExecutionStore interface {
	Create(ctx context.Context, rec ExecutionRecord) error
	ListRecent(ctx context.Context, limit int) ([]ExecutionRecord, error)
}

// PriceCache stores latest mark prices by canonical token symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// LockManager provides distributed locks. Used to guarantee at most one
// recenter/adjustment sequence is in flight across processes.
type LockManager interface {
	// Acquire returns an unlock function on success, ErrLockHeld when the
	// lock is already taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter throttles calls against external APIs (subgraph, venue REST).
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// BlobWriter writes archive objects (snapshot history older than the
// retention window) to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
