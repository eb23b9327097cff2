package shipping

import (
	"context"
	"sync"
	"time"
)

// MemStore mirrors PGStore semantics behind a mutex, for tests and
// Postgres-free runs.
type MemStore struct {
	mu      sync.Mutex
	byTrack map[string]*Shipment
	byOrder map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		byTrack: make(map[string]*Shipment),
		byOrder: make(map[string]string),
	}
}

func (s *MemStore) CreateOrGet(_ context.Context, sh Shipment) (Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tid, ok := s.byOrder[sh.OrderID]; ok {
		return snapshot(s.byTrack[tid]), nil
	}
	now := time.Now().UTC()
	sh.CreatedAt, sh.UpdatedAt = now, now
	sh.Stages = []Stage{{Name: sh.Status, At: now}}
	s.byTrack[sh.TrackingID] = &sh
	s.byOrder[sh.OrderID] = sh.TrackingID
	return snapshot(&sh), nil
}

func (s *MemStore) Advance(_ context.Context, trackingID string) (Shipment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.byTrack[trackingID]
	if !ok {
		return Shipment{}, false, ErrNotFound
	}
	next, ok := NextStage(sh.Status)
	if !ok {
		return snapshot(sh), true, nil
	}
	now := time.Now().UTC()
	sh.Status = next
	sh.UpdatedAt = now
	sh.Stages = append(sh.Stages, Stage{Name: next, At: now})
	return snapshot(sh), false, nil
}

func (s *MemStore) Get(_ context.Context, trackingID string) (Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.byTrack[trackingID]
	if !ok {
		return Shipment{}, ErrNotFound
	}
	return snapshot(sh), nil
}

func snapshot(sh *Shipment) Shipment {
	out := *sh
	out.Stages = append([]Stage(nil), sh.Stages...)
	return out
}
