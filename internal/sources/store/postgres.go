package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/sources/models"
	"caseflow/pkg/platform/sentinel"
)

// Postgres persists intake records. All four kinds share one table with a
// kind discriminator; the legacy schema had one table per source, but the
// engine only ever addresses them by case number, so the discriminator
// preserves the semantics with a single propagation statement.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const recordColumns = `id, kind, case_number, destination, subject, origin,
	office_reference_number, concluded_at, created_at, updated_at`

func (s *Postgres) Save(ctx context.Context, r *models.Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			case_number = EXCLUDED.case_number,
			destination = EXCLUDED.destination,
			subject = EXCLUDED.subject,
			origin = EXCLUDED.origin,
			office_reference_number = EXCLUDED.office_reference_number,
			concluded_at = EXCLUDED.concluded_at,
			updated_at = EXCLUDED.updated_at`,
		r.ID, r.Kind, r.CaseNumber, r.Destination, r.Subject, r.Origin,
		r.OfficeReferenceNumber, r.ConcludedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save source record: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	var r models.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM source_records WHERE id = $1`, id,
	).Scan(&r.ID, &r.Kind, &r.CaseNumber, &r.Destination, &r.Subject, &r.Origin,
		&r.OfficeReferenceNumber, &r.ConcludedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find source record: %w", err)
	}
	return &r, nil
}

func (s *Postgres) ListByCaseNumber(ctx context.Context, caseNumber string) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM source_records
		WHERE case_number = $1
		ORDER BY created_at ASC`, caseNumber)
	if err != nil {
		return nil, fmt.Errorf("list source records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.ID, &r.Kind, &r.CaseNumber, &r.Destination, &r.Subject,
			&r.Origin, &r.OfficeReferenceNumber, &r.ConcludedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Postgres) PropagateDisposition(ctx context.Context, caseNumber, destination string, clearConclusion bool) (int64, error) {
	query := `UPDATE source_records SET destination = $2, updated_at = $3 WHERE case_number = $1`
	if clearConclusion {
		query = `UPDATE source_records
			SET destination = $2, updated_at = $3, office_reference_number = '', concluded_at = NULL
			WHERE case_number = $1`
	}
	res, err := s.db.ExecContext(ctx, query, caseNumber, destination, time.Now())
	if err != nil {
		return 0, fmt.Errorf("propagate disposition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("propagate disposition rows: %w", err)
	}
	return n, nil
}
