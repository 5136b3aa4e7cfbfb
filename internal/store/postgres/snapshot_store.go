package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given connection
// pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

func scanPointRows(rows pgx.Rows) ([]domain.NetWorthPoint, error) {
	var points []domain.NetWorthPoint
	for rows.Next() {
		var p domain.NetWorthPoint
		if err := rows.Scan(&p.Timestamp, &p.NetWorth); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Append records one net-worth sample.
func (s *SnapshotStore) Append(ctx context.Context, point domain.NetWorthPoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO net_worth_snapshots (timestamp, net_worth) VALUES ($1, $2)`,
		point.Timestamp, point.NetWorth,
	)
	if err != nil {
		return fmt.Errorf("postgres: append snapshot: %w", err)
	}
	return nil
}

// ListAsc returns all points ordered by timestamp ascending.
func (s *SnapshotStore) ListAsc(ctx context.Context) ([]domain.NetWorthPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, net_worth FROM net_worth_snapshots ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	defer rows.Close()

	points, err := scanPointRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan snapshots: %w", err)
	}
	return points, nil
}

// ListBefore returns points older than cutoff, oldest first, up to limit.
func (s *SnapshotStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.NetWorthPoint, error) {
	query := `SELECT timestamp, net_worth FROM net_worth_snapshots WHERE timestamp < $1 ORDER BY timestamp ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots before: %w", err)
	}
	defer rows.Close()

	points, err := scanPointRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan snapshots before: %w", err)
	}
	return points, nil
}

// DeleteBefore removes points older than cutoff and returns the count.
func (s *SnapshotStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM net_worth_snapshots WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Latest returns the most recent point, or domain.ErrNotFound when no
// snapshot exists yet.
func (s *SnapshotStore) Latest(ctx context.Context) (domain.NetWorthPoint, error) {
	var p domain.NetWorthPoint
	err := s.pool.QueryRow(ctx,
		`SELECT timestamp, net_worth FROM net_worth_snapshots ORDER BY timestamp DESC LIMIT 1`,
	).Scan(&p.Timestamp, &p.NetWorth)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NetWorthPoint{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.NetWorthPoint{}, fmt.Errorf("postgres: latest snapshot: %w", err)
	}
	return p, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
