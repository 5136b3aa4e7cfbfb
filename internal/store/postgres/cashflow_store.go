package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// CashFlowStore implements domain.CashFlowStore using PostgreSQL.
type CashFlowStore struct {
	pool *pgxpool.Pool
}

// NewCashFlowStore creates a new CashFlowStore backed by the given connection
// pool.
func NewCashFlowStore(pool *pgxpool.Pool) *CashFlowStore {
	return &CashFlowStore{pool: pool}
}

// Create records one deposit or withdrawal event. A duplicate ID returns
// domain.ErrAlreadyExists.
func (s *CashFlowStore) Create(ctx context.Context, cf domain.CashFlow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cash_flows (id, timestamp, flow_type, amount_usd, note)
		 VALUES ($1, $2, $3, $4, $5)`,
		cf.ID, cf.Timestamp, string(cf.Type), cf.AmountUSD, cf.Note,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("postgres: cash flow %s: %w", cf.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create cash flow: %w", err)
	}
	return nil
}

// ListAsc returns all cash flows ordered by timestamp ascending.
func (s *CashFlowStore) ListAsc(ctx context.Context) ([]domain.CashFlow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, flow_type, amount_usd, note
		 FROM cash_flows ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cash flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.CashFlow
	for rows.Next() {
		var cf domain.CashFlow
		var flowType string
		if err := rows.Scan(&cf.ID, &cf.Timestamp, &flowType, &cf.AmountUSD, &cf.Note); err != nil {
			return nil, fmt.Errorf("postgres: scan cash flow: %w", err)
		}
		cf.Type = domain.CashFlowType(flowType)
		flows = append(flows, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate cash flows: %w", err)
	}
	return flows, nil
}

// Compile-time interface check.
var _ domain.CashFlowStore = (*CashFlowStore)(nil)
