package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseflow/pkg/platform/sentinel"
)

// Postgres persists intents in the propagation_outbox table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Enqueue(ctx context.Context, intent *Intent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	intent.Status = StatusPending
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO propagation_outbox (id, case_id, case_number, destination, clear_conclusion, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		intent.ID, intent.CaseID, intent.CaseNumber, intent.Destination,
		intent.ClearConclusion, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue propagation intent: %w", err)
	}
	return nil
}

func (s *Postgres) ListPending(ctx context.Context, limit int) ([]*Intent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, case_number, destination, clear_conclusion, status, attempts, last_error, created_at, processed_at
		FROM propagation_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}
	defer rows.Close()

	var out []*Intent
	for rows.Next() {
		var (
			in        Intent
			lastError sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.CaseID, &in.CaseNumber, &in.Destination,
			&in.ClearConclusion, &in.Status, &in.Attempts, &lastError,
			&in.CreatedAt, &in.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		in.LastError = lastError.String
		out = append(out, &in)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkDone(ctx context.Context, id uuid.UUID, at time.Time, attempts int) error {
	return s.mark(ctx, id, StatusDone, at, attempts, "")
}

func (s *Postgres) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, attempts int, lastError string) error {
	return s.mark(ctx, id, StatusFailed, at, attempts, lastError)
}

func (s *Postgres) mark(ctx context.Context, id uuid.UUID, status Status, at time.Time, attempts int, lastError string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE propagation_outbox
		SET status = $2, attempts = $3, last_error = NULLIF($4, ''), processed_at = $5
		WHERE id = $1`,
		id, status, attempts, lastError, at,
	)
	if err != nil {
		return fmt.Errorf("mark intent %s: %w", status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark intent rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
