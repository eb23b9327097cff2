package payments

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu   sync.Mutex
	rows map[string]Payment
}

func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]Payment)}
}

func (s *MemStore) Insert(_ context.Context, p Payment) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rows[p.ID]; ok {
		existing.UpdatedAt = time.Now().UTC()
		s.rows[p.ID] = existing
		return existing, nil
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.rows[p.ID] = p
	return p, nil
}

func (s *MemStore) Refund(_ context.Context, paymentID string) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	if p.Status != StatusCaptured {
		return Payment{}, ErrConflict
	}
	p.Status = StatusRefunded
	p.UpdatedAt = time.Now().UTC()
	s.rows[paymentID] = p
	return p, nil
}

func (s *MemStore) GetByID(_ context.Context, paymentID string) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) GetByOrder(_ context.Context, orderID string) ([]Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Payment
	for _, p := range s.rows {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}
