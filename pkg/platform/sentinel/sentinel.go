package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: soft-uniqueness violated (second active case for a case number)
// - ErrInvalidState: case in wrong lifecycle state for requested operation
// - ErrNoRowsAffected: a filtered update matched nothing (propagation retry signal)
// - ErrUnavailable: store or lock backend temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidState   = errors.New("invalid state")
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrUnavailable    = errors.New("unavailable")
)
