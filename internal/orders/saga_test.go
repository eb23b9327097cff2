package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	order      Order
	markErr    error
	price      int
	priceErr   error
	paidFails  int // SetPaid calls to fail before succeeding
	statuses   []Status
	paidTracks []string
}

func (f *fakeStore) MarkPaying(_ context.Context, id string) (Order, error) {
	if f.markErr != nil {
		return Order{}, f.markErr
	}
	o := f.order
	o.ID = id
	o.Status = StatusPaying
	return o, nil
}

func (f *fakeStore) SetStatus(_ context.Context, _ string, st Status) error {
	f.statuses = append(f.statuses, st)
	return nil
}

func (f *fakeStore) SetPaid(_ context.Context, id, trackingID string) (Order, error) {
	if f.paidFails > 0 {
		f.paidFails--
		return Order{}, errors.New("db timeout")
	}
	f.paidTracks = append(f.paidTracks, trackingID)
	o := f.order
	o.ID = id
	o.Status = StatusCreatedPaid
	o.TrackingID = trackingID
	return o, nil
}

func (f *fakeStore) ProductPriceCents(_ context.Context, _ string) (int, error) {
	return f.price, f.priceErr
}

type fakeInventory struct {
	reserveErr error
	commitErr  error
	releaseErr error
	reserved   []string
	committed  []string
	released   []string
}

func (f *fakeInventory) Reserve(_ context.Context, reservationID, _ string, _ int) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reserved = append(f.reserved, reservationID)
	return nil
}

func (f *fakeInventory) Commit(_ context.Context, reservationID string) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, reservationID)
	return nil
}

func (f *fakeInventory) Release(_ context.Context, reservationID string) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, reservationID)
	return nil
}

// fakePayments replays a script: one entry per attempt, true = captured.
// A nil script declines everything; errs marks attempts that fail at the
// transport level instead.
type fakePayments struct {
	script []bool
	errs   map[int]error
	calls  []string
}

func (f *fakePayments) Charge(_ context.Context, paymentID string, _ int, _, _ string) (bool, error) {
	i := len(f.calls)
	f.calls = append(f.calls, paymentID)
	if err, ok := f.errs[i]; ok {
		return false, err
	}
	if i < len(f.script) {
		return f.script[i], nil
	}
	return false, nil
}

type fakeShipping struct {
	trackingID string
	err        error
}

func (f *fakeShipping) Fulfill(_ context.Context, _, _ string) (string, error) {
	return f.trackingID, f.err
}

type fakeNotifier struct {
	err   error
	types []string
}

func (f *fakeNotifier) Send(_ context.Context, typ, _ string, _ map[string]any) error {
	f.types = append(f.types, typ)
	return f.err
}

type fakeCompQueue struct {
	actions []string
	resIDs  []string
	err     error
}

func (f *fakeCompQueue) Enqueue(_ context.Context, action, reservationID, _ string) error {
	f.actions = append(f.actions, action)
	f.resIDs = append(f.resIDs, reservationID)
	return f.err
}

func newTestSaga(st *fakeStore, inv *fakeInventory, pay *fakePayments, ship *fakeShipping, n *fakeNotifier, q *fakeCompQueue) *Saga {
	return &Saga{
		Store:     st,
		Inventory: inv,
		Payments:  pay,
		Shipping:  ship,
		Notify:    n,
		Comp:      q,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func TestPaySuccess(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 2}, price: 1500}
	inv := &fakeInventory{}
	pay := &fakePayments{script: []bool{true}}
	ship := &fakeShipping{trackingID: "trk-abc"}
	n := &fakeNotifier{}
	q := &fakeCompQueue{}

	res, err := newTestSaga(st, inv, pay, ship, n, q).Pay(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, "p-o1-1", res.PaymentID)
	require.Equal(t, 3000, res.AmountCents)
	require.Equal(t, StatusCreatedPaid, res.Order.Status)
	require.Equal(t, "trk-abc", res.Order.TrackingID)

	require.Len(t, inv.reserved, 1)
	require.Equal(t, inv.reserved, inv.committed, "the committed reservation must be the reserved one")
	require.Empty(t, inv.released)
	require.Empty(t, st.statuses, "no failure status on the happy path")
	require.Equal(t, []string{"trk-abc"}, st.paidTracks)
	require.Equal(t, []string{"order_confirmed"}, n.types)
	require.Empty(t, q.actions)
}

func TestPayChargeRetriesUntilCapture(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	pay := &fakePayments{script: []bool{false, false, true}}
	saga := newTestSaga(st, &fakeInventory{}, pay, &fakeShipping{trackingID: "trk-1"}, &fakeNotifier{}, &fakeCompQueue{})

	res, err := saga.Pay(context.Background(), "o2")
	require.NoError(t, err)
	require.Equal(t, "p-o2-3", res.PaymentID)
	require.Equal(t, []string{"p-o2-1", "p-o2-2", "p-o2-3"}, pay.calls)
}

func TestPayDeclinedReleasesAndFails(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	inv := &fakeInventory{}
	pay := &fakePayments{} // declines everything
	n := &fakeNotifier{}

	_, err := newTestSaga(st, inv, pay, &fakeShipping{}, n, &fakeCompQueue{}).Pay(context.Background(), "o3")
	require.ErrorIs(t, err, ErrPaymentDeclined)
	require.Len(t, pay.calls, 3, "all attempts exhausted")
	require.Equal(t, inv.reserved, inv.released, "reservation must be released after decline")
	require.Empty(t, inv.committed)
	require.Equal(t, []Status{StatusFailed}, st.statuses)
	require.Contains(t, n.types, "payment_failed")
	require.Empty(t, st.paidTracks)
}

func TestPayChargeTransportErrorCountsAsAttempt(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	pay := &fakePayments{
		script: []bool{false, true},
		errs:   map[int]error{0: errors.New("connection refused")},
	}
	saga := newTestSaga(st, &fakeInventory{}, pay, &fakeShipping{trackingID: "trk-1"}, &fakeNotifier{}, &fakeCompQueue{})

	res, err := saga.Pay(context.Background(), "o4")
	require.NoError(t, err)
	require.Equal(t, "p-o4-2", res.PaymentID)
}

func TestPayInsufficientStock(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 99}, price: 500}
	inv := &fakeInventory{reserveErr: ErrInsufficientStock}
	pay := &fakePayments{script: []bool{true}}
	n := &fakeNotifier{}

	_, err := newTestSaga(st, inv, pay, &fakeShipping{}, n, &fakeCompQueue{}).Pay(context.Background(), "o5")
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, pay.calls, "no charge without a reservation")
	require.Equal(t, []Status{StatusFailed}, st.statuses)
	require.Equal(t, []string{"order_failed"}, n.types)
}

func TestPayReserveTransportError(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	inv := &fakeInventory{reserveErr: errors.New("dial tcp: timeout")}

	_, err := newTestSaga(st, inv, &fakePayments{}, &fakeShipping{}, &fakeNotifier{}, &fakeCompQueue{}).Pay(context.Background(), "o6")
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, []Status{StatusFailed}, st.statuses)
}

func TestPayNotPayablePassesThrough(t *testing.T) {
	st := &fakeStore{markErr: ErrNotPayable}
	inv := &fakeInventory{}

	_, err := newTestSaga(st, inv, &fakePayments{}, &fakeShipping{}, &fakeNotifier{}, &fakeCompQueue{}).Pay(context.Background(), "o7")
	require.ErrorIs(t, err, ErrNotPayable)
	require.Empty(t, inv.reserved, "gate must stop the saga before any side effect")
}

func TestPayCommitFailureQueuedStillPaid(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	inv := &fakeInventory{commitErr: errors.New("inventory down")}
	q := &fakeCompQueue{}

	res, err := newTestSaga(st, inv, &fakePayments{script: []bool{true}}, &fakeShipping{trackingID: "trk-1"}, &fakeNotifier{}, q).Pay(context.Background(), "o8")
	require.NoError(t, err, "a failed commit must not fail a captured order")
	require.Equal(t, StatusCreatedPaid, res.Order.Status)
	require.Equal(t, []string{"commit"}, q.actions)
}

func TestPayReleaseFailureQueued(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	inv := &fakeInventory{releaseErr: errors.New("inventory down")}
	q := &fakeCompQueue{}

	_, err := newTestSaga(st, inv, &fakePayments{}, &fakeShipping{}, &fakeNotifier{}, q).Pay(context.Background(), "o9")
	require.ErrorIs(t, err, ErrPaymentDeclined)
	require.Equal(t, []string{"release"}, q.actions)
	require.Equal(t, inv.reserved, q.resIDs, "the queued release must target the leaked reservation")
}

func TestPayFulfillFailureLeavesOrderPaid(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	ship := &fakeShipping{err: errors.New("shipping down")}

	res, err := newTestSaga(st, &fakeInventory{}, &fakePayments{script: []bool{true}}, ship, &fakeNotifier{}, &fakeCompQueue{}).Pay(context.Background(), "o10")
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, StatusCreatedPaid, res.Order.Status, "the charge is captured, the order stays paid")
	require.Equal(t, []string{""}, st.paidTracks, "paid without a tracking id")
	require.Equal(t, "p-o10-1", res.PaymentID)
}

func TestPaySetPaidRetriedAfterCapture(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500, paidFails: 2}

	res, err := newTestSaga(st, &fakeInventory{}, &fakePayments{script: []bool{true}}, &fakeShipping{trackingID: "trk-1"}, &fakeNotifier{}, &fakeCompQueue{}).Pay(context.Background(), "o13")
	require.NoError(t, err, "a transient failure of the terminal write must not lose a captured order")
	require.Equal(t, StatusCreatedPaid, res.Order.Status)
	require.Equal(t, []string{"trk-1"}, st.paidTracks)
}

func TestPayNotifyFailureNonBlocking(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, price: 500}
	n := &fakeNotifier{err: fmt.Errorf("notify down")}

	res, err := newTestSaga(st, &fakeInventory{}, &fakePayments{script: []bool{true}}, &fakeShipping{trackingID: "trk-1"}, n, &fakeCompQueue{}).Pay(context.Background(), "o11")
	require.NoError(t, err)
	require.Equal(t, StatusCreatedPaid, res.Order.Status)
}

func TestPayPriceLookupFailureReleases(t *testing.T) {
	st := &fakeStore{order: Order{UserID: "u1", ProductID: "prod-1", Qty: 1}, priceErr: errors.New("no such product")}
	inv := &fakeInventory{}
	pay := &fakePayments{script: []bool{true}}

	_, err := newTestSaga(st, inv, pay, &fakeShipping{}, &fakeNotifier{}, &fakeCompQueue{}).Pay(context.Background(), "o12")
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, inv.reserved, inv.released)
	require.Empty(t, pay.calls)
	require.Equal(t, []Status{StatusFailed}, st.statuses)
}
