package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hedgemon/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL. Step
// results are stored as a JSONB array since they are written once and only
// read back whole.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore backed by the given
// connection pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// stepJSON is the JSONB shape of one step result.
type stepJSON struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	TxID   string `json:"tx_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Create persists one execution record.
func (s *ExecutionStore) Create(ctx context.Context, rec domain.ExecutionRecord) error {
	steps := make([]stepJSON, 0, len(rec.Steps))
	for _, st := range rec.Steps {
		steps = append(steps, stepJSON{
			Name:   st.Name,
			Status: string(st.Status),
			TxID:   st.TxID,
			Error:  st.Error,
		})
	}
	stepsData, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("postgres: marshal execution steps: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO executions (id, mode, operation, success, steps, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, string(rec.Mode), string(rec.Operation), rec.Success,
		stepsData, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create execution: %w", err)
	}
	return nil
}

// ListRecent returns the newest executions first, up to limit.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, mode, operation, success, steps, started_at, completed_at
		 FROM executions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()

	var records []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var mode, operation string
		var stepsData []byte
		if err := rows.Scan(&rec.ID, &mode, &operation, &rec.Success, &stepsData, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		rec.Mode = domain.ExecutionMode(mode)
		rec.Operation = domain.OperationType(operation)

		var steps []stepJSON
		if err := json.Unmarshal(stepsData, &steps); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal execution steps: %w", err)
		}
		for _, st := range steps {
			rec.Steps = append(rec.Steps, domain.StepResult{
				Name:   st.Name,
				Status: domain.StepStatus(st.Status),
				TxID:   st.TxID,
				Error:  st.Error,
			})
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate executions: %w", err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.ExecutionStore = (*ExecutionStore)(nil)
