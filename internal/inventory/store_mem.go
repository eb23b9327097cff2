package inventory

import (
	"context"
	"fmt"
	"sync"
)

// MemStore mirrors PGStore semantics behind a mutex. Used by tests and for
// running a service without Postgres.
type MemStore struct {
	mu           sync.Mutex
	stock        map[string]int
	reservations map[string]Reservation
}

func NewMemStore() *MemStore {
	return &MemStore{
		stock:        make(map[string]int),
		reservations: make(map[string]Reservation),
	}
}

func (s *MemStore) Reserve(_ context.Context, reservationID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// at most one reservation per id; PGStore gets this from the primary key
	if _, ok := s.reservations[reservationID]; ok {
		return fmt.Errorf("reservation already exists: %s", reservationID)
	}
	if s.stock[productID] < qty {
		return ErrInsufficientStock
	}
	s.stock[productID] -= qty
	s.reservations[reservationID] = Reservation{ID: reservationID, ProductID: productID, Qty: qty}
	return nil
}

func (s *MemStore) Commit(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[reservationID]; !ok {
		return ErrNotFound
	}
	delete(s.reservations, reservationID)
	return nil
}

func (s *MemStore) Release(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[reservationID]
	if !ok {
		return ErrNotFound
	}
	s.stock[res.ProductID] += res.Qty
	delete(s.reservations, reservationID)
	return nil
}

func (s *MemStore) SetStock(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = qty
	return nil
}

func (s *MemStore) GetStock(_ context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.stock[productID]
	if !ok {
		return 0, ErrNotFound
	}
	return qty, nil
}
