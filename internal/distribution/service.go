// Package distribution serves the unassigned-case queue: suggesting a
// prior owner for reopened cases and recording assignments.
package distribution

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"caseflow/internal/casenumber"
	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	"caseflow/internal/ownership"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/requestcontext"
)

type Service struct {
	cases     store.CaseStore
	history   store.HistoryStore
	ownership ownership.Store
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(cases store.CaseStore, history store.HistoryStore,
	ownershipStore ownership.Store, opts ...Option) *Service {
	s := &Service{
		cases:     cases,
		history:   history,
		ownership: ownershipStore,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestPriorOwners maps each case id to the owner it most likely had
// before a reopen. Three passes, first hit wins, a resolved case never
// reconsidered:
//
//  1. the ownership history relation, written by the reopen path;
//  2. the bracketed prior-owner tag in notes, for rows predating the
//     relation;
//  3. historical case rows sharing any tolerant spelling of the case
//     number, most recent non-null owner.
//
// Cases that cannot be loaded are skipped with a warning so one bad id
// does not sink the whole queue.
func (s *Service) SuggestPriorOwners(ctx context.Context, caseIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	suggestions := make(map[uuid.UUID]uuid.UUID, len(caseIDs))
	remaining := make([]*models.Case, 0, len(caseIDs))

	for _, id := range caseIDs {
		c, err := s.cases.FindByID(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("suggestion skipped, case not found", "case_id", id)
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load case for suggestion")
		}

		if owner, found, err := s.ownership.LatestByCase(ctx, id); err != nil {
			s.logger.Warn("ownership history lookup failed, falling back to notes",
				"case_id", id, "error", err)
		} else if found {
			suggestions[id] = owner
			continue
		}

		if owner, ok := ownership.ParseTag(c.Notes); ok {
			suggestions[id] = owner
			continue
		}
		remaining = append(remaining, c)
	}

	for _, c := range remaining {
		owner, ok, err := s.lastOwnerByNumber(ctx, c)
		if err != nil {
			return nil, err
		}
		if ok {
			suggestions[c.ID] = owner
		}
	}
	return suggestions, nil
}

// lastOwnerByNumber is the fallback heuristic: other case rows carrying
// any spelling variant of the same number, newest owned row wins. The row
// under consideration itself never counts.
func (s *Service) lastOwnerByNumber(ctx context.Context, c *models.Case) (uuid.UUID, bool, error) {
	variants := casenumber.Variants(c.CaseNumber)
	if len(variants) == 0 {
		return uuid.Nil, false, nil
	}
	candidates, err := s.cases.List(ctx, store.Filter{NumberIn: variants})
	if err != nil {
		return uuid.Nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "list cases by number variants")
	}

	var (
		owner uuid.UUID
		found bool
		best  *models.Case
	)
	for _, cand := range candidates {
		if cand.ID == c.ID || cand.OwnerID == nil {
			continue
		}
		if best == nil || cand.CreatedAt.After(best.CreatedAt) {
			best = cand
			owner = *cand.OwnerID
			found = true
		}
	}
	return owner, found, nil
}

// Assign hands a case to an owner. A pending case moves to in-progress
// with a history entry; a case already owned by someone else is a
// conflict, and re-assigning the same owner is a no-op.
func (s *Service) Assign(ctx context.Context, caseID, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "owner id is required")
	}

	now := requestcontext.Now(ctx)
	var (
		previous models.State
		moved    bool
		noop     bool
	)
	_, err := s.cases.Mutate(ctx, caseID, func(c *models.Case) error {
		if c.OwnerID != nil {
			if *c.OwnerID == ownerID {
				noop = true
				return nil
			}
			return dErrors.Newf(dErrors.CodeConflict,
				"case already assigned to %s", *c.OwnerID)
		}
		c.OwnerID = &ownerID
		t := now
		c.AssignedAt = &t
		if c.State == models.StatePending {
			previous = c.State
			c.State = models.StateInProgress
			moved = true
		}
		c.UpdatedAt = now
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("assignment on missing case ignored", "case_id", caseID)
		return nil
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "assign case")
	}
	if noop {
		return nil
	}

	if moved {
		actor := requestcontext.Actor(ctx)
		if err := s.history.Append(ctx, models.HistoryEntry{
			CaseID:        caseID,
			PreviousState: previous,
			NewState:      models.StateInProgress,
			ActorID:       actor.ID,
			ActorName:     actor.Name,
			Comment:       "assigned",
			CreatedAt:     now,
		}); err != nil {
			s.logger.Warn("history append failed after assignment",
				"case_id", caseID, "error", err)
		}
	}
	s.logger.Info("case assigned", "case_id", caseID, "owner_id", ownerID)
	return nil
}

// Queue lists unassigned, active cases for the distribution screen.
func (s *Service) Queue(ctx context.Context) ([]*models.Case, error) {
	out, err := s.cases.List(ctx, store.Filter{
		Unassigned: true,
		States: []models.State{
			models.StatePending,
			models.StateInProgress,
			models.StateAwaitingResponse,
			models.StateCourt,
		},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list unassigned cases")
	}
	return out, nil
}
