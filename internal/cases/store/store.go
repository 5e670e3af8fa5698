// Package store persists canonical case records and their state history.
//
// Stores are interface-driven to keep the engine testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code. Case numbers are soft-unique only: the upstream tables carry
// duplicate references, so the at-most-one-active-case invariant is enforced
// by the callers' read-before-write checks, with FindActiveByCanonical as
// the canonicalized lookup those checks use.
package store

import (
	"context"

	"github.com/google/uuid"

	"caseflow/internal/cases/models"
)

// Filter narrows List results. Zero values mean "no constraint".
// NumberIn implements set-membership matching over case-number variants;
// NotesContains is a case-insensitive substring match.
type Filter struct {
	States        []models.State
	OwnerID       *uuid.UUID
	Unassigned    bool
	NumberIn      []string
	NotesContains string
	Geolocated    bool
}

// CaseStore is the canonical case registry.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	// FindByNumber looks up by exact case-number match. When duplicates
	// exist (the storage layer does not forbid them) the most recently
	// created row wins.
	FindByNumber(ctx context.Context, caseNumber string) (*models.Case, error)
	// FindActiveByCanonical looks up the active (non-terminal) case whose
	// canonical case number matches. Manual creation uses it to reject
	// duplicates; the adapters deliberately do not (exact-match only).
	FindActiveByCanonical(ctx context.Context, canonical string) (*models.Case, error)
	// List returns cases matching the filter, most recently created first.
	List(ctx context.Context, f Filter) ([]*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
	// Mutate runs fn against the current row and persists the result as a
	// single atomic read-modify-write. The reopen path uses it so the
	// notes prepend cannot race a concurrent reopen.
	Mutate(ctx context.Context, id uuid.UUID, fn func(c *models.Case) error) (*models.Case, error)
	// Delete removes the row. Only manually created cases are ever hard
	// deleted; callers enforce that rule.
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryStore is the append-only state transition log.
type HistoryStore interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.HistoryEntry, error)
}
