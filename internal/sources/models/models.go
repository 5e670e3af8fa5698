// Package models defines the intake records the engine reconciles against.
// Source tables are the system of record for intake; the case registry is
// the system of record for ownership and lifecycle.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "caseflow/pkg/domain-errors"
)

// Kind identifies which intake table a record belongs to.
type Kind string

const (
	KindCorrespondence   Kind = "correspondence"
	KindExternalNotice   Kind = "external-notice"
	KindDeprecatedNotice Kind = "deprecated-notice"
	KindCrimeProcess     Kind = "crime-process"
)

var validKinds = map[Kind]bool{
	KindCorrespondence:   true,
	KindExternalNotice:   true,
	KindDeprecatedNotice: true,
	KindCrimeProcess:     true,
}

// ParseKind constructs a Kind from external input.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !validKinds[k] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown source kind %q", s)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }

// Record is one intake row. All four kinds share this shape; only which
// free-text field serves as the "subject" in provenance notes differs per
// kind. CaseNumber may dangle or duplicate; the engine tolerates both.
type Record struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	CaseNumber  string    `json:"case_number"`
	Destination string    `json:"destination"`
	Subject     string    `json:"subject"`
	Origin      string    `json:"origin"`
	// OfficeReferenceNumber and ConcludedAt mirror the case's conclusion
	// onto the intake row; reopening clears them again.
	OfficeReferenceNumber string     `json:"office_reference_number,omitempty"`
	ConcludedAt           *time.Time `json:"concluded_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
