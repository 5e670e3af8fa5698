package ownership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only ownership fact: before this reopen, ownerID held
// the case. Keyed by case number as well as case id so the fallback lookup
// survives the same number recurring across distinct case rows.
type Entry struct {
	ID         uuid.UUID
	CaseID     uuid.UUID
	CaseNumber string
	OwnerID    uuid.UUID
	RecordedAt time.Time
}

// Store is the append-only ownership history relation.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// LatestByCase returns the most recently recorded owner for the case
	// id, or false when no history exists.
	LatestByCase(ctx context.Context, caseID uuid.UUID) (uuid.UUID, bool, error)
}
