// Package sync reconciles intake records with the canonical case registry.
//
// One parameterized service covers all four source kinds; only the
// provenance label and which record field serves as the "subject" differ.
// The intake write always lands first and is never rolled back: a failed
// case reconciliation is logged and counted, not surfaced, because the
// source tables must not be blocked by the registry.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	casemodels "caseflow/internal/cases/models"
	casestore "caseflow/internal/cases/store"
	"caseflow/internal/outbox"
	"caseflow/internal/ownership"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/sources/models"
	sourcestore "caseflow/internal/sources/store"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/requestcontext"
)

// kindProfile parameterizes the adapter per source kind.
type kindProfile struct {
	label   string
	subject func(r *models.Record) string
}

var profiles = map[models.Kind]kindProfile{
	models.KindCorrespondence: {
		label:   "correspondence",
		subject: func(r *models.Record) string { return r.Subject },
	},
	models.KindExternalNotice: {
		label:   "external notice",
		subject: func(r *models.Record) string { return r.Subject },
	},
	models.KindDeprecatedNotice: {
		label:   "notice (legacy intake)",
		subject: func(r *models.Record) string { return r.Subject },
	},
	models.KindCrimeProcess: {
		label:   "crime process",
		subject: func(r *models.Record) string { return r.Origin },
	},
}

// Kicker wakes the propagation worker after an enqueue.
type Kicker interface {
	Kick()
}

// Service is the shared source adapter.
type Service struct {
	cases     casestore.CaseStore
	history   casestore.HistoryStore
	records   sourcestore.RecordStore
	ownership ownership.Store
	outbox    outbox.Store
	locker    Locker
	kicker    Kicker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocker replaces the in-process reopen lock, typically with the Redis
// backed one so concurrent processes serialize reopens too.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithKicker(k Kicker) Option {
	return func(s *Service) { s.kicker = k }
}

func NewService(cases casestore.CaseStore, history casestore.HistoryStore,
	records sourcestore.RecordStore, ownershipStore ownership.Store,
	outboxStore outbox.Store, opts ...Option) *Service {
	s := &Service{
		cases:     cases,
		history:   history,
		records:   records,
		ownership: ownershipStore,
		outbox:    outboxStore,
		locker:    newInProcessLocker(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync persists the intake record and reconciles the linked case. The
// record write is the system of record for intake and always sticks; any
// failure on the case side is logged and swallowed.
func (s *Service) Sync(ctx context.Context, kind models.Kind, record *models.Record) error {
	profile, ok := profiles[kind]
	if !ok {
		return fmt.Errorf("unknown source kind %q", kind)
	}
	record.Kind = kind

	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save %s record: %w", kind, err)
	}

	if record.Destination != casemodels.DestinationInternal || record.CaseNumber == "" {
		s.metrics.IncrementSync(kind.String(), "skipped")
		return nil
	}

	if err := s.reconcile(ctx, profile, kind, record); err != nil {
		// The source write must not be blocked by reconciliation.
		s.metrics.IncrementSync(kind.String(), "failed")
		s.logger.Error("case reconciliation failed, source record kept",
			"kind", kind, "case_number", record.CaseNumber, "error", err)
	}
	return nil
}

func (s *Service) reconcile(ctx context.Context, profile kindProfile, kind models.Kind, record *models.Record) error {
	unlock, err := s.locker.Lock(ctx, record.CaseNumber)
	if err != nil {
		s.logger.Warn("reopen lock unavailable, proceeding unlocked",
			"case_number", record.CaseNumber, "error", err)
	} else {
		defer unlock()
	}

	// Adapters match on the exact case number only; tolerant variants are
	// the ownership resolver's business. Formatting drift therefore
	// creates a second case here rather than reopening the first.
	existing, err := s.cases.FindByNumber(ctx, record.CaseNumber)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s.createCase(ctx, profile, kind, record)
	case err != nil:
		return fmt.Errorf("lookup case %q: %w", record.CaseNumber, err)
	}

	switch {
	case existing.IsAssigned():
		return s.reopenCase(ctx, profile, kind, record, existing)
	case existing.State.IsTerminal():
		return s.forcePending(ctx, kind, existing)
	default:
		s.metrics.IncrementSync(kind.String(), "noop")
		return nil
	}
}

func (s *Service) createCase(ctx context.Context, profile kindProfile, kind models.Kind, record *models.Record) error {
	now := requestcontext.Now(ctx)
	c := &casemodels.Case{
		CaseNumber:     record.CaseNumber,
		State:          casemodels.StatePending,
		Classification: casemodels.ClassificationNormal,
		Notes:          provenanceNote(profile, record),
		Destination:    casemodels.DestinationInternal,
		SourceKind:     kind.String(),
		CreatedAt:      now,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return fmt.Errorf("create case %q: %w", record.CaseNumber, err)
	}
	s.metrics.IncrementSync(kind.String(), "created")
	s.logger.Info("case created from source",
		"kind", kind, "case_id", c.ID, "case_number", c.CaseNumber)
	return nil
}

// reopenCase clears ownership on an owned case because a new intake record
// referenced its number. The previous owner is remembered twice: in the
// ownership history relation, and as the legacy bracketed tag prepended to
// notes. Both writes happen inside the store's atomic mutate, so two racing
// reopens cannot both stack a tag and a failed relation append aborts the
// reopen rather than committing a reopen the relation never saw.
func (s *Service) reopenCase(ctx context.Context, profile kindProfile, kind models.Kind,
	record *models.Record, existing *casemodels.Case) error {
	now := requestcontext.Now(ctx)
	subject := profile.subject(record)

	var (
		prevOwner uuid.UUID
		prevState casemodels.State
	)
	updated, err := s.cases.Mutate(ctx, existing.ID, func(c *casemodels.Case) error {
		if c.OwnerID == nil {
			// Lost the race with another reopen; nothing left to do.
			return sentinel.ErrInvalidState
		}
		prevOwner = *c.OwnerID
		prevState = c.State
		if err := s.ownership.Append(ctx, ownership.Entry{
			CaseID:     c.ID,
			CaseNumber: c.CaseNumber,
			OwnerID:    prevOwner,
			RecordedAt: now,
		}); err != nil {
			return fmt.Errorf("append ownership history: %w", err)
		}
		c.Notes = ownership.ReopenNote(prevOwner, now, profile.label, subject) + c.Notes
		c.ApplyReopen(now)
		return nil
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		s.metrics.IncrementSync(kind.String(), "noop")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reopen case %q: %w", record.CaseNumber, err)
	}

	s.appendHistory(ctx, updated.ID, prevState, now, fmt.Sprintf("reopened via %s", profile.label))
	s.enqueueReopenPropagation(ctx, updated)
	s.metrics.IncrementSync(kind.String(), "reopened")
	s.logger.Info("case reopened from source",
		"kind", kind, "case_id", updated.ID, "case_number", updated.CaseNumber,
		"previous_owner", prevOwner)
	return nil
}

// forcePending pushes a terminal, unowned case back to the start of the
// lifecycle. Ownership is already clear, so no tag is written.
func (s *Service) forcePending(ctx context.Context, kind models.Kind, existing *casemodels.Case) error {
	now := requestcontext.Now(ctx)
	var prevState casemodels.State
	updated, err := s.cases.Mutate(ctx, existing.ID, func(c *casemodels.Case) error {
		if !c.State.IsTerminal() {
			return sentinel.ErrInvalidState
		}
		prevState = c.State
		c.ApplyReopen(now)
		return nil
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		s.metrics.IncrementSync(kind.String(), "noop")
		return nil
	}
	if err != nil {
		return fmt.Errorf("force pending %q: %w", existing.CaseNumber, err)
	}

	s.appendHistory(ctx, updated.ID, prevState, now, "reactivated by new source record")
	s.enqueueReopenPropagation(ctx, updated)
	s.metrics.IncrementSync(kind.String(), "forced")
	return nil
}

// appendHistory records the reopen transition. Failures are logged, never
// propagated: the case write is already committed and the audit trail must
// not undo it.
func (s *Service) appendHistory(ctx context.Context, caseID uuid.UUID, prevState casemodels.State, now time.Time, comment string) {
	actor := requestcontext.Actor(ctx)
	entry := casemodels.HistoryEntry{
		CaseID:        caseID,
		PreviousState: prevState,
		NewState:      casemodels.StatePending,
		ActorID:       actor.ID,
		ActorName:     actorName(actor),
		Comment:       comment,
		CreatedAt:     now,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("history append failed on reopen", "case_id", caseID, "error", err)
	}
}

func actorName(actor requestcontext.ActorIdentity) string {
	if actor.Name != "" {
		return actor.Name
	}
	return "source-sync"
}

func (s *Service) enqueueReopenPropagation(ctx context.Context, c *casemodels.Case) {
	intent := &outbox.Intent{
		CaseID:          c.ID,
		CaseNumber:      c.CaseNumber,
		Destination:     casemodels.DestinationInternal,
		ClearConclusion: true,
	}
	if err := s.outbox.Enqueue(ctx, intent); err != nil {
		s.logger.Warn("could not enqueue reopen propagation",
			"case_id", c.ID, "error", err)
		return
	}
	if s.kicker != nil {
		s.kicker.Kick()
	}
}

func provenanceNote(profile kindProfile, record *models.Record) string {
	note := fmt.Sprintf("Registered from %s", profile.label)
	if subject := profile.subject(record); subject != "" {
		note += ": " + subject
	}
	if record.Origin != "" && record.Origin != profile.subject(record) {
		note += fmt.Sprintf(" (origin: %s)", record.Origin)
	}
	return note + "\n"
}
