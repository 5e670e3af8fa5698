package ownership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Postgres persists ownership history rows. The table is append-only;
// there is no update or delete path on purpose.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ownership_history (id, case_id, case_number, owner_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.CaseID, entry.CaseNumber, entry.OwnerID, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append ownership history: %w", err)
	}
	return nil
}

func (s *Postgres) LatestByCase(ctx context.Context, caseID uuid.UUID) (uuid.UUID, bool, error) {
	var ownerID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id FROM ownership_history
		WHERE case_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, caseID,
	).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("latest owner for case %s: %w", caseID, err)
	}
	return ownerID, true, nil
}
