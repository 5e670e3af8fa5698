// Package service implements the case lifecycle operations: manual
// registration, lookup, the state machine transition, and deletion with
// source-attribution awareness.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"caseflow/internal/casenumber"
	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	"caseflow/internal/outbox"
	"caseflow/internal/platform/metrics"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	pstrings "caseflow/pkg/platform/strings"
	"caseflow/pkg/requestcontext"
)

// Kicker wakes the propagation worker after an intent is enqueued.
type Kicker interface {
	Kick()
}

type Service struct {
	cases   store.CaseStore
	history store.HistoryStore
	outbox  outbox.Store
	kicker  Kicker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithKicker(k Kicker) Option {
	return func(s *Service) { s.kicker = k }
}

func NewService(cases store.CaseStore, history store.HistoryStore,
	outboxStore outbox.Store, opts ...Option) *Service {
	s := &Service{
		cases:   cases,
		history: history,
		outbox:  outboxStore,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a case by hand. Unlike the intake path, manual creation
// is strict about the soft uniqueness rule: at most one active case per
// canonical case number.
func (s *Service) Create(ctx context.Context, c *models.Case) (*models.Case, error) {
	if c.CaseNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "case number is required")
	}
	if c.State == "" {
		c.State = models.StatePending
	}
	if !c.State.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown state %q", c.State)
	}
	if c.Classification == "" {
		c.Classification = models.ClassificationNormal
	}
	if c.Destination == "" {
		c.Destination = models.DestinationInternal
	}
	c.Reporters = normalizeParties(c.Reporters)
	c.Subjects = normalizeParties(c.Subjects)

	canonical := casenumber.Canonical(c.CaseNumber)
	existing, err := s.cases.FindActiveByCanonical(ctx, canonical)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "canonical lookup failed")
	}
	if existing != nil {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"active case %s already exists for number %q", existing.ID, c.CaseNumber)
	}

	c.CreatedAt = requestcontext.Now(ctx)
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create case")
	}
	s.logger.Info("case registered", "case_id", c.ID, "case_number", c.CaseNumber)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	c, err := s.cases.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "case %s not found", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load case")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f store.Filter) ([]*models.Case, error) {
	out, err := s.cases.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list cases")
	}
	return out, nil
}

// ListByNumberVariants finds cases under any tolerant spelling of the given
// case number, so a caller holding "7/24.0ABC" also sees rows stored as
// "007/24.0ABC".
func (s *Service) ListByNumberVariants(ctx context.Context, raw string) ([]*models.Case, error) {
	variants := casenumber.Variants(raw)
	if len(variants) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "case number is required")
	}
	return s.List(ctx, store.Filter{NumberIn: variants})
}

func (s *Service) History(ctx context.Context, caseID uuid.UUID) ([]models.HistoryEntry, error) {
	entries, err := s.history.ListByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list case history")
	}
	return entries, nil
}

// Transition moves a case to a new lifecycle state. Same-state calls are
// no-ops. Concluding with an office reference requires a destination; that
// pairing is validated before any write. A single history entry is appended
// per effective transition, and the resulting destination is queued for
// back-propagation to the intake tables.
func (s *Service) Transition(ctx context.Context, caseID uuid.UUID,
	newState models.State, comment, officeRef, destination string) error {
	if !newState.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown state %q", newState)
	}
	if newState == models.StateConcluded && officeRef != "" && destination == "" {
		return dErrors.New(dErrors.CodeValidation,
			"destination is required to conclude with an office reference")
	}

	now := requestcontext.Now(ctx)
	var (
		previous models.State
		noop     bool
	)
	updated, err := s.cases.Mutate(ctx, caseID, func(c *models.Case) error {
		if c.State == newState {
			noop = true
			return nil
		}
		if !c.State.CanTransitionTo(newState) {
			return dErrors.Newf(dErrors.CodeInvalidState,
				"cannot transition from %s to %s", c.State, newState)
		}
		previous = c.State
		if newState == models.StateConcluded && officeRef != "" {
			c.ApplyConclusion(now, officeRef, destination)
			return nil
		}
		c.State = newState
		if newState == models.StateConcluded && destination != "" {
			c.Destination = destination
		}
		if !newState.IsTerminal() {
			c.Destination = models.DestinationInternal
			c.ConcludedAt = nil
			c.OfficeReferenceNumber = ""
		}
		c.UpdatedAt = now
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		// The case vanished between the caller's read and this write.
		s.logger.Warn("transition on missing case ignored", "case_id", caseID, "new_state", newState)
		return nil
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "transition case")
	}
	if noop {
		return nil
	}

	actor := requestcontext.Actor(ctx)
	entry := models.HistoryEntry{
		CaseID:        caseID,
		PreviousState: previous,
		NewState:      newState,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		Comment:       comment,
		CreatedAt:     now,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("history append failed after transition",
			"case_id", caseID, "error", err)
	}

	s.enqueuePropagation(ctx, updated, newState, destination)
	s.metrics.IncrementTransition(newState.String())
	s.logger.Info("case transitioned",
		"case_id", caseID, "from", previous, "to", newState, "actor", entry.ActorName)
	return nil
}

// enqueuePropagation decides what the intake tables should hear about this
// transition. Concluding with a destination pushes that destination out;
// any move into an active state pushes the sentinel and clears the intake
// rows' own conclusion fields. Archiving, and conclusions without a
// destination, stay local to the case.
func (s *Service) enqueuePropagation(ctx context.Context, c *models.Case,
	newState models.State, destination string) {
	intent := &outbox.Intent{CaseID: c.ID, CaseNumber: c.CaseNumber}
	switch {
	case newState == models.StateConcluded && destination != "":
		intent.Destination = destination
	case !newState.IsTerminal():
		intent.Destination = models.DestinationInternal
		intent.ClearConclusion = true
	default:
		return
	}

	if err := s.outbox.Enqueue(ctx, intent); err != nil {
		s.logger.Warn("could not enqueue transition propagation",
			"case_id", c.ID, "error", err)
		return
	}
	if s.kicker != nil {
		s.kicker.Kick()
	}
}

// Delete removes a case. Manually registered cases are hard-deleted; cases
// attributed to an intake record are reset instead, preserving the row and
// its source linkage.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.cases.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("delete on missing case ignored", "case_id", id)
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load case")
	}

	if !c.HasSourceAttribution() {
		if err := s.cases.Delete(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete case")
		}
		s.logger.Info("case deleted", "case_id", id)
		return nil
	}

	now := requestcontext.Now(ctx)
	var previous models.State
	_, err = s.cases.Mutate(ctx, id, func(c *models.Case) error {
		previous = c.State
		c.ApplyReopen(now)
		c.Notes = ""
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset case")
	}
	if previous != models.StatePending {
		actor := requestcontext.Actor(ctx)
		if err := s.history.Append(ctx, models.HistoryEntry{
			CaseID:        id,
			PreviousState: previous,
			NewState:      models.StatePending,
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			Comment:       "reset on delete of source-attributed case",
			CreatedAt:     now,
		}); err != nil {
			s.logger.Warn("history append failed after reset", "case_id", id, "error", err)
		}
	}
	s.logger.Info("source-attributed case reset instead of deleted", "case_id", id)
	return nil
}

func normalizeParties(parties []models.Party) []models.Party {
	names := make([]string, 0, len(parties))
	for _, p := range parties {
		names = append(names, p.Name)
	}
	deduped := pstrings.DedupeAndTrim(names)
	if len(deduped) == 0 {
		return nil
	}
	out := make([]models.Party, 0, len(deduped))
	for _, name := range deduped {
		out = append(out, models.Party{Name: name})
	}
	return out
}
