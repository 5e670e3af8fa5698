package ownership

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory keeps ownership history in process. Entries are append-only;
// nothing ever mutates or removes them.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemory) LatestByCase(_ context.Context, caseID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  Entry
		found bool
	)
	for _, e := range s.entries {
		if e.CaseID != caseID {
			continue
		}
		if !found || e.RecordedAt.After(best.RecordedAt) {
			best = e
			found = true
		}
	}
	if !found {
		return uuid.Nil, false, nil
	}
	return best.OwnerID, true, nil
}
