package models

import (
	"time"

	"github.com/google/uuid"
)

// DestinationInternal is the active sentinel: the destination label meaning
// "currently held by the investigation unit". Concluding a case replaces it
// with the terminal custodian; reopening restores it.
const DestinationInternal = "Internal Investigation Unit"

// Classification separates routine cases from priority ones.
type Classification string

const (
	ClassificationNormal   Classification = "normal"
	ClassificationPriority Classification = "priority"
)

// Party is a named person attached to a case. The slices on Case are
// ordered for storage but semantically unordered sets.
type Party struct {
	Name string `json:"name"`
}

// Case is the canonical registry record for one case number.
//
// Invariants:
//   - OwnerID == nil implies State == StatePending (unassigned cases are
//     never mid-lifecycle)
//   - State == StateConcluded implies ConcludedAt != nil and Destination
//     != DestinationInternal
//   - At most one active (non-terminal) case exists per canonical case
//     number; enforced by the store's read-before-write check, not by a
//     storage constraint
//
// CaseNumber is the cross-source correlation key and is soft-unique only:
// the upstream tables carry dangling and duplicate references by design.
type Case struct {
	ID             uuid.UUID      `json:"id"`
	CaseNumber     string         `json:"case_number"`
	State          State          `json:"state"`
	OwnerID        *uuid.UUID     `json:"owner_id,omitempty"`
	Classification Classification `json:"classification"`
	// Notes is free text. Legacy rows also carry the machine-readable
	// prior-owner tag inside it (see internal/ownership); new reopens
	// write the ownership history relation instead, and still prepend
	// the tag for the screens that parse it.
	Notes                 string     `json:"notes"`
	Destination           string     `json:"destination"`
	AssignedAt            *time.Time `json:"assigned_at,omitempty"`
	ConcludedAt           *time.Time `json:"concluded_at,omitempty"`
	OfficeReferenceNumber string     `json:"office_reference_number,omitempty"`
	Reporters             []Party    `json:"reporters,omitempty"`
	Subjects              []Party    `json:"subjects,omitempty"`
	CrimeType             string     `json:"crime_type,omitempty"`
	Latitude              *float64   `json:"latitude,omitempty"`
	Longitude             *float64   `json:"longitude,omitempty"`
	// SourceKind records which intake table created this case; empty for
	// manually registered cases. Deletion semantics depend on it: cases
	// with source attribution are reset, never removed.
	SourceKind string    `json:"source_kind,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAssigned reports whether the case has an owner.
func (c *Case) IsAssigned() bool {
	return c.OwnerID != nil
}

// IsActive reports whether the case is in a non-terminal state.
func (c *Case) IsActive() bool {
	return !c.State.IsTerminal()
}

// HasSourceAttribution reports whether an intake record created this case.
func (c *Case) HasSourceAttribution() bool {
	return c.SourceKind != ""
}

// ApplyReopen clears ownership and resets the case to the start of the
// lifecycle. Destination returns to the active sentinel and conclusion
// stamps are cleared so the distribution queue picks the case up fresh.
func (c *Case) ApplyReopen(now time.Time) {
	c.OwnerID = nil
	c.State = StatePending
	c.Destination = DestinationInternal
	c.AssignedAt = nil
	c.ConcludedAt = nil
	c.OfficeReferenceNumber = ""
	c.UpdatedAt = now
}

// ApplyConclusion stamps the terminal fields for a concluded case.
func (c *Case) ApplyConclusion(now time.Time, officeRef, destination string) {
	c.State = StateConcluded
	t := now
	c.ConcludedAt = &t
	c.OfficeReferenceNumber = officeRef
	c.Destination = destination
	c.UpdatedAt = now
}

// HistoryEntry is one append-only record of a state transition. Entries are
// the audit trail: never edited or deleted, even when business logic above
// errs.
type HistoryEntry struct {
	ID            uuid.UUID `json:"id"`
	CaseID        uuid.UUID `json:"case_id"`
	PreviousState State     `json:"previous_state"`
	NewState      State     `json:"new_state"`
	ActorID       uuid.UUID `json:"actor_id"`
	ActorName     string    `json:"actor_name"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
