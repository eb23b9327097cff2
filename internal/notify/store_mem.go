package notify

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu   sync.Mutex
	rows map[string]Notification
}

func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]Notification)}
}

func (s *MemStore) Insert(_ context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.CreatedAt = time.Now().UTC()
	s.rows[n.ID] = n
	return n, nil
}

func (s *MemStore) MarkDelivered(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	n.DeliveredAt = &now
	s.rows[id] = n
	return nil
}

func (s *MemStore) ListByRecipient(_ context.Context, to string) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.rows {
		if n.Recipient == to {
			out = append(out, n)
		}
	}
	return out, nil
}
