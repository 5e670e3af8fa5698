package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/casenumber"
	"caseflow/internal/cases/models"
	"caseflow/pkg/platform/sentinel"
)

// InMemory backs the registry with maps for unit tests and development.
type InMemory struct {
	mu      sync.RWMutex
	cases   map[uuid.UUID]*models.Case
	history map[uuid.UUID][]models.HistoryEntry
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:   make(map[uuid.UUID]*models.Case),
		history: make(map[uuid.UUID][]models.HistoryEntry),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCase(c), nil
}

func (s *InMemory) FindByNumber(_ context.Context, caseNumber string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Case
	for _, c := range s.cases {
		if c.CaseNumber != caseNumber {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneCase(best), nil
}

func (s *InMemory) FindActiveByCanonical(_ context.Context, canonical string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Case
	for _, c := range s.cases {
		if !c.IsActive() || casenumber.Canonical(c.CaseNumber) != canonical {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneCase(best), nil
}

func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Case
	for _, c := range s.cases {
		if !matches(c, f) {
			continue
		}
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Update(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(c)
}

func (s *InMemory) Mutate(_ context.Context, id uuid.UUID, fn func(c *models.Case) error) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneCase(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := s.updateLocked(working); err != nil {
		return nil, err
	}
	return cloneCase(working), nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cases, id)
	return nil
}

// Append records one state transition. History is append-only; there is no
// update or delete path.
func (s *InMemory) Append(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.history[entry.CaseID] = append(s.history[entry.CaseID], entry)
	return nil
}

func (s *InMemory) ListByCase(_ context.Context, caseID uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[caseID]
	out := make([]models.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemory) updateLocked(c *models.Case) error {
	if _, ok := s.cases[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	s.cases[c.ID] = cloneCase(c)
	return nil
}

func matches(c *models.Case, f Filter) bool {
	if len(f.States) > 0 {
		ok := false
		for _, st := range f.States {
			if c.State == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.OwnerID != nil {
		if c.OwnerID == nil || *c.OwnerID != *f.OwnerID {
			return false
		}
	}
	if f.Unassigned && c.OwnerID != nil {
		return false
	}
	if len(f.NumberIn) > 0 {
		ok := false
		for _, n := range f.NumberIn {
			if c.CaseNumber == n {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.NotesContains != "" &&
		!strings.Contains(strings.ToLower(c.Notes), strings.ToLower(f.NotesContains)) {
		return false
	}
	if f.Geolocated && (c.Latitude == nil || c.Longitude == nil) {
		return false
	}
	return true
}

func cloneCase(c *models.Case) *models.Case {
	cp := *c
	if c.OwnerID != nil {
		v := *c.OwnerID
		cp.OwnerID = &v
	}
	if c.AssignedAt != nil {
		v := *c.AssignedAt
		cp.AssignedAt = &v
	}
	if c.ConcludedAt != nil {
		v := *c.ConcludedAt
		cp.ConcludedAt = &v
	}
	if c.Latitude != nil {
		v := *c.Latitude
		cp.Latitude = &v
	}
	if c.Longitude != nil {
		v := *c.Longitude
		cp.Longitude = &v
	}
	cp.Reporters = append([]models.Party(nil), c.Reporters...)
	cp.Subjects = append([]models.Party(nil), c.Subjects...)
	return &cp
}
