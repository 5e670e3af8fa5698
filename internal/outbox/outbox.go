// Package outbox makes back-propagation durable. A lifecycle transition
// enqueues a propagation intent alongside the case write; the worker drains
// intents and fans the case's disposition out to the intake tables. The
// case's own state change never waits on, and is never undone by, a
// propagation failure.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status tracks an intent through the drain loop.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Intent is one queued back-propagation: write Destination onto every
// source record sharing CaseNumber, optionally clearing their conclusion
// fields (the reopen path).
type Intent struct {
	ID              uuid.UUID `json:"id"`
	CaseID          uuid.UUID `json:"case_id"`
	CaseNumber      string    `json:"case_number"`
	Destination     string    `json:"destination"`
	ClearConclusion bool      `json:"clear_conclusion"`
	Status          Status    `json:"status"`
	Attempts        int       `json:"attempts"`
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

// Store persists intents.
type Store interface {
	Enqueue(ctx context.Context, intent *Intent) error
	// ListPending returns up to limit pending intents, oldest first.
	ListPending(ctx context.Context, limit int) ([]*Intent, error)
	MarkDone(ctx context.Context, id uuid.UUID, at time.Time, attempts int) error
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, attempts int, lastError string) error
}
