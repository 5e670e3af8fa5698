package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/sources/models"
	"caseflow/pkg/platform/sentinel"
)

// InMemory keeps intake records in process for unit tests and development.
type InMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[uuid.UUID]*models.Record)}
}

func (s *InMemory) Save(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) ListByCaseNumber(_ context.Context, caseNumber string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.CaseNumber != caseNumber {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) PropagateDisposition(_ context.Context, caseNumber, destination string, clearConclusion bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hit int64
	for _, r := range s.records {
		if r.CaseNumber != caseNumber {
			continue
		}
		r.Destination = destination
		if clearConclusion {
			r.OfficeReferenceNumber = ""
			r.ConcludedAt = nil
		}
		r.UpdatedAt = time.Now()
		hit++
	}
	return hit, nil
}
