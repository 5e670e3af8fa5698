package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseflow/pkg/platform/sentinel"
)

// InMemory queues intents in process.
type InMemory struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*Intent
}

func NewInMemory() *InMemory {
	return &InMemory{intents: make(map[uuid.UUID]*Intent)}
}

func (s *InMemory) Enqueue(_ context.Context, intent *Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	intent.Status = StatusPending
	cp := *intent
	s.intents[intent.ID] = &cp
	return nil
}

func (s *InMemory) ListPending(_ context.Context, limit int) ([]*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Intent
	for _, in := range s.intents {
		if in.Status != StatusPending {
			continue
		}
		cp := *in
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) MarkDone(_ context.Context, id uuid.UUID, at time.Time, attempts int) error {
	return s.mark(id, StatusDone, at, attempts, "")
}

func (s *InMemory) MarkFailed(_ context.Context, id uuid.UUID, at time.Time, attempts int, lastError string) error {
	return s.mark(id, StatusFailed, at, attempts, lastError)
}

func (s *InMemory) mark(id uuid.UUID, status Status, at time.Time, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	in.Status = status
	in.Attempts = attempts
	in.LastError = lastError
	t := at
	in.ProcessedAt = &t
	return nil
}
