// Package store persists intake records for all four source kinds and
// carries the back-propagation write the lifecycle machine fans out to them.
package store

import (
	"context"

	"github.com/google/uuid"

	"caseflow/internal/sources/models"
)

// RecordStore is the intake-record store shared by every source kind.
type RecordStore interface {
	Save(ctx context.Context, r *models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error)
	ListByCaseNumber(ctx context.Context, caseNumber string) ([]*models.Record, error)
	// PropagateDisposition writes destination onto every record, across
	// all kinds, whose case number matches exactly. When clearConclusion
	// is set the records' own office-reference and conclusion fields are
	// reset as well (the reopen path). Returns the number of rows hit so
	// the caller can fall back to the whitespace-stripped variant.
	PropagateDisposition(ctx context.Context, caseNumber, destination string, clearConclusion bool) (int64, error)
}
