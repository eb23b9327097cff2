package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/outbox"
)

type memQueue struct {
	pending []outbox.Record
	sent    []int64
	bumped  []int64
}

func (q *memQueue) FetchPending(_ context.Context, limit int) ([]outbox.Record, error) {
	if limit > len(q.pending) {
		limit = len(q.pending)
	}
	return q.pending[:limit], nil
}

func (q *memQueue) MarkSent(_ context.Context, id int64) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *memQueue) Bump(_ context.Context, id int64) error {
	q.bumped = append(q.bumped, id)
	return nil
}

func TestCompensatorAppliesPending(t *testing.T) {
	q := &memQueue{pending: []outbox.Record{
		{ID: 1, Action: "release", ReservationID: "r-1", OrderID: "o-1"},
		{ID: 2, Action: "commit", ReservationID: "r-2", OrderID: "o-2"},
	}}
	inv := &fakeInventory{}
	c := &Compensator{Queue: q, Inventory: inv, Log: zap.NewNop()}

	c.drain(context.Background())
	require.Equal(t, []string{"r-1"}, inv.released)
	require.Equal(t, []string{"r-2"}, inv.committed)
	require.Equal(t, []int64{1, 2}, q.sent)
	require.Empty(t, q.bumped)
}

func TestCompensatorBumpsOnFailure(t *testing.T) {
	q := &memQueue{pending: []outbox.Record{
		{ID: 7, Action: "release", ReservationID: "r-7", OrderID: "o-7", Attempts: 2},
	}}
	inv := &fakeInventory{releaseErr: errors.New("inventory still down")}
	c := &Compensator{Queue: q, Inventory: inv, Log: zap.NewNop()}

	c.drain(context.Background())
	require.Empty(t, q.sent, "a failed retry must stay pending")
	require.Equal(t, []int64{7}, q.bumped)
}

func TestCompensatorNotFoundCountsAsDone(t *testing.T) {
	// The reservation vanished: an earlier attempt (or the saga itself)
	// already delivered the compensation.
	q := &memQueue{pending: []outbox.Record{
		{ID: 3, Action: "release", ReservationID: "r-3", OrderID: "o-3"},
	}}
	inv := &fakeInventory{releaseErr: ErrNotFound}
	c := &Compensator{Queue: q, Inventory: inv, Log: zap.NewNop()}

	c.drain(context.Background())
	require.Equal(t, []int64{3}, q.sent)
	require.Empty(t, q.bumped)
}

func TestCompensatorUnknownActionDropped(t *testing.T) {
	q := &memQueue{pending: []outbox.Record{
		{ID: 4, Action: "explode", ReservationID: "r-4", OrderID: "o-4"},
	}}
	c := &Compensator{Queue: q, Inventory: &fakeInventory{}, Log: zap.NewNop()}

	c.drain(context.Background())
	require.Equal(t, []int64{4}, q.sent, "unknown actions must not wedge the queue")
}
