package outbox

import (
	"context"
	"log/slog"
	"time"

	"caseflow/internal/casenumber"
	"caseflow/internal/platform/metrics"
)

// Propagator is the slice of the source-record store the worker needs.
type Propagator interface {
	PropagateDisposition(ctx context.Context, caseNumber, destination string, clearConclusion bool) (int64, error)
}

const drainBatchSize = 50

// Worker drains propagation intents. It wakes on a timer and on explicit
// kicks from the lifecycle service so propagation usually lands within the
// same request's lifetime without ever blocking it.
type Worker struct {
	store    Store
	sources  Propagator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	kick     chan struct{}
}

func NewWorker(store Store, sources Propagator, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		store:    store,
		sources:  sources,
		logger:   logger,
		metrics:  m,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Kick asks the worker to drain soon. Non-blocking; a pending kick absorbs
// further ones.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run drains until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.kick:
		}
		if err := w.DrainOnce(ctx); err != nil {
			w.logger.Error("outbox drain failed", "error", err)
		}
	}
}

// DrainOnce processes the current batch of pending intents. Each intent is
// tried with the exact case number first; if that touches zero source rows,
// once more with the whitespace-stripped variant (some intake tables carry
// stray spaces that others do not). Anything still failing is marked failed
// and logged; the originating case write has already committed.
func (w *Worker) DrainOnce(ctx context.Context) error {
	pending, err := w.store.ListPending(ctx, drainBatchSize)
	if err != nil {
		return err
	}
	for _, intent := range pending {
		w.process(ctx, intent)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, intent *Intent) {
	now := time.Now()
	attempts := intent.Attempts + 1

	n, err := w.sources.PropagateDisposition(ctx, intent.CaseNumber, intent.Destination, intent.ClearConclusion)
	if err == nil && n > 0 {
		w.metrics.IncrementPropagation("ok")
		if markErr := w.store.MarkDone(ctx, intent.ID, now, attempts); markErr != nil {
			w.logger.Warn("propagated but could not mark intent done", "intent", intent.ID, "error", markErr)
		}
		return
	}
	if err != nil {
		w.logger.Warn("propagation attempt failed",
			"case_number", intent.CaseNumber, "error", err)
	}

	stripped := casenumber.StripSpaces(intent.CaseNumber)
	if stripped != intent.CaseNumber {
		attempts++
		n, err = w.sources.PropagateDisposition(ctx, stripped, intent.Destination, intent.ClearConclusion)
		if err == nil && n > 0 {
			w.metrics.IncrementPropagation("retried")
			if markErr := w.store.MarkDone(ctx, intent.ID, now, attempts); markErr != nil {
				w.logger.Warn("propagated but could not mark intent done", "intent", intent.ID, "error", markErr)
			}
			return
		}
	}

	w.metrics.IncrementPropagation("failed")
	reason := "no source records matched"
	if err != nil {
		reason = err.Error()
	}
	w.logger.Warn("propagation exhausted retries, swallowing",
		"case_id", intent.CaseID, "case_number", intent.CaseNumber, "reason", reason)
	if markErr := w.store.MarkFailed(ctx, intent.ID, now, attempts, reason); markErr != nil {
		w.logger.Warn("could not mark intent failed", "intent", intent.ID, "error", markErr)
	}
}
