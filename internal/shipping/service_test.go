package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pushRecorder struct {
	err      error
	statuses []string
	orders   []string
}

func (p *pushRecorder) PushStatus(_ context.Context, orderID, status string) error {
	p.orders = append(p.orders, orderID)
	p.statuses = append(p.statuses, status)
	return p.err
}

type notifyRecorder struct {
	err   error
	types []string
}

func (n *notifyRecorder) Send(_ context.Context, typ, _ string, _ map[string]any) error {
	n.types = append(n.types, typ)
	return n.err
}

func newTestService(p *pushRecorder, n *notifyRecorder) *Service {
	return &Service{Store: NewMemStore(), Orders: p, Notify: n, Log: zap.NewNop()}
}

func TestNextStage(t *testing.T) {
	next, ok := NextStage(StageProcessing)
	require.True(t, ok)
	require.Equal(t, StageCollected, next)

	next, ok = NextStage(StageInTransit)
	require.True(t, ok)
	require.Equal(t, StageDeliveredToPickup, next)

	_, ok = NextStage(StageDeliveredToPickup)
	require.False(t, ok, "terminal stage has no successor")

	_, ok = NextStage("warehouse_fire")
	require.False(t, ok)
}

func TestFulfillIdempotentPerOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&pushRecorder{}, &notifyRecorder{})

	first, err := svc.Fulfill(ctx, "o1", "u1")
	require.NoError(t, err)
	require.NotEmpty(t, first.TrackingID)
	require.Equal(t, StageProcessing, first.Status)
	require.Len(t, first.Stages, 1)

	second, err := svc.Fulfill(ctx, "o1", "u1")
	require.NoError(t, err)
	require.Equal(t, first.TrackingID, second.TrackingID, "same order, same shipment")
}

func TestAdvanceWalksTheStages(t *testing.T) {
	ctx := context.Background()
	push := &pushRecorder{}
	notif := &notifyRecorder{}
	svc := newTestService(push, notif)

	sh, err := svc.Fulfill(ctx, "o1", "u1")
	require.NoError(t, err)

	want := []string{StageCollected, StageInTransit, StageDeliveredToPickup}
	for i, stage := range want {
		got, done, err := svc.Advance(ctx, sh.TrackingID)
		require.NoError(t, err)
		require.Equal(t, stage, got.Status)
		require.Equal(t, i == len(want)-1, done, "done only at the terminal stage")
	}

	require.Equal(t, want, push.statuses, "every transition pushed to the order ledger")
	require.Equal(t, []string{
		"shipment_collected", "shipment_in_transit", "shipment_delivered_to_pickup",
	}, notif.types)

	tracked, err := svc.Track(ctx, sh.TrackingID)
	require.NoError(t, err)
	require.Len(t, tracked.Stages, 4, "processing plus three transitions")
}

func TestAdvancePastTerminalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	push := &pushRecorder{}
	svc := newTestService(push, &notifyRecorder{})

	sh, err := svc.Fulfill(ctx, "o1", "u1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = svc.Advance(ctx, sh.TrackingID)
		require.NoError(t, err)
	}

	got, done, err := svc.Advance(ctx, sh.TrackingID)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, StageDeliveredToPickup, got.Status)
	require.Len(t, got.Stages, 4, "no duplicate stage rows past terminal")
	require.Len(t, push.statuses, 3, "no push for the no-op advance")
}

func TestAdvanceUnknownTrackingID(t *testing.T) {
	svc := newTestService(&pushRecorder{}, &notifyRecorder{})
	_, _, err := svc.Advance(context.Background(), "trk-nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Track(context.Background(), "trk-nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceSideEffectFailuresDoNotBlock(t *testing.T) {
	ctx := context.Background()
	push := &pushRecorder{err: errors.New("orders down")}
	notif := &notifyRecorder{err: errors.New("notify down")}
	svc := newTestService(push, notif)

	sh, err := svc.Fulfill(ctx, "o1", "u1")
	require.NoError(t, err)

	got, _, err := svc.Advance(ctx, sh.TrackingID)
	require.NoError(t, err, "push and notify failures are logged, not returned")
	require.Equal(t, StageCollected, got.Status)
}

func TestFulfillRequiresOrderID(t *testing.T) {
	svc := newTestService(&pushRecorder{}, &notifyRecorder{})
	_, err := svc.Fulfill(context.Background(), "", "u1")
	require.Error(t, err)
}
