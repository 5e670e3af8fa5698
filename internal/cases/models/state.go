package models

import (
	dErrors "caseflow/pkg/domain-errors"
)

// State is the lifecycle state of a case.
//
// Invariant: transitions follow the table below. The only route back into
// StatePending from a non-initial state is the reopen path driven by the
// source adapters; Transition rejects it, Reopen applies it.
type State string

const (
	StatePending          State = "pending-start"
	StateInProgress       State = "in-progress"
	StateAwaitingResponse State = "awaiting-response"
	StateCourt            State = "court"
	StateConcluded        State = "concluded"
	StateArchived         State = "archived"
)

// transitions is the single source of truth for legal state changes.
// StateArchived is reachable from every non-terminal state; the two terminal
// states have no outgoing edges here (reopen bypasses the table).
var transitions = map[State]map[State]bool{
	StatePending: {
		StateInProgress: true,
		StateArchived:   true,
	},
	StateInProgress: {
		StateAwaitingResponse: true,
		StateCourt:            true,
		StateConcluded:        true,
		StateArchived:         true,
	},
	StateAwaitingResponse: {
		StateInProgress: true,
		StateCourt:      true,
		StateConcluded:  true,
		StateArchived:   true,
	},
	StateCourt: {
		StateInProgress:       true,
		StateAwaitingResponse: true,
		StateConcluded:        true,
		StateArchived:         true,
	},
	StateConcluded: {},
	StateArchived:  {},
}

// ParseState constructs a State from external input.
func ParseState(s string) (State, error) {
	st := State(s)
	if _, ok := transitions[st]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown case state %q", s)
	}
	return st, nil
}

// IsValid reports whether the state is one of the supported enum values.
func (s State) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether the state ends the active lifecycle.
func (s State) IsTerminal() bool {
	return s == StateConcluded || s == StateArchived
}

// CanTransitionTo reports whether the table permits moving to next.
// Re-entering StatePending is never permitted here; that is the reopen
// path's privilege.
func (s State) CanTransitionTo(next State) bool {
	return transitions[s][next]
}

func (s State) String() string {
	return string(s)
}
