package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/metrics"
)

const defaultChargeAttempts = 3

// Saga drives one pay-order attempt:
//
//	reserve -> charge (retried) -> commit + fulfill -> paid
//
// with compensating edges: reserve failure marks the order failed, charge
// exhaustion releases the reservation and marks the order failed. Past
// commit there is no compensation; a failed commit or release call is
// queued for background retry instead of being dropped.
type Saga struct {
	Store     Store
	Inventory InventoryClient
	Payments  PaymentClient
	Shipping  ShippingClient
	Notify    Notifier
	Comp      CompensationQueue
	Metrics   *metrics.SagaMetrics
	Log       *zap.Logger

	// ChargeAttempts defaults to 3. Each attempt uses a fresh payment id
	// ("p-{orderID}-{attempt}") because the demo gateway decides the
	// outcome from the id's trailing digit parity.
	ChargeAttempts int
	Currency       string

	// Now is swappable in tests; reservation ids embed the attempt time.
	Now func() time.Time
}

// PayResult is the saga's success snapshot. PaymentID identifies the
// captured attempt, which the caller needs for the order.paid event.
type PayResult struct {
	Order       Order
	PaymentID   string
	AmountCents int
}

// Pay runs the fulfillment saga for one order. The conditional MarkPaying
// update is the mutual-exclusion gate: two concurrent calls on the same
// order cannot both pass it.
func (s *Saga) Pay(ctx context.Context, orderID string) (PayResult, error) {
	o, err := s.Store.MarkPaying(ctx, orderID)
	if err != nil {
		return PayResult{}, err
	}
	log := s.Log.With(zap.String("order_id", o.ID))

	// Fresh reservation per attempt, by design: a failed saga leaves no
	// reservation behind, so a retry must not reuse the old id.
	resID := fmt.Sprintf("r-%s-%d", o.ID, s.now().UnixNano())

	if err := s.Inventory.Reserve(ctx, resID, o.ProductID, o.Qty); err != nil {
		s.notify(ctx, "order_failed", o.UserID, map[string]any{"order_id": o.ID, "reason": "stock"}, log)
		s.fail(ctx, o.ID, log)
		if errors.Is(err, ErrInsufficientStock) {
			s.outcome("stock_rejected")
			return PayResult{}, err
		}
		s.outcome("reserve_failed")
		return PayResult{}, fmt.Errorf("%w: reserve: %v", ErrUpstream, err)
	}
	log.Info("stock reserved", zap.String("reservation_id", resID), zap.Int("qty", o.Qty))

	price, err := s.Store.ProductPriceCents(ctx, o.ProductID)
	if err != nil {
		s.release(ctx, resID, o.ID, log)
		s.notify(ctx, "order_failed", o.UserID, map[string]any{"order_id": o.ID, "reason": "pricing"}, log)
		s.fail(ctx, o.ID, log)
		s.outcome("price_lookup_failed")
		return PayResult{}, fmt.Errorf("%w: price lookup: %v", ErrUpstream, err)
	}
	amount := price * o.Qty

	paymentID, captured := s.charge(ctx, o.ID, amount, log)
	if !captured {
		s.notify(ctx, "payment_failed", o.UserID, map[string]any{"order_id": o.ID, "amount_cents": amount}, log)
		s.release(ctx, resID, o.ID, log)
		s.fail(ctx, o.ID, log)
		s.outcome("payment_declined")
		return PayResult{}, ErrPaymentDeclined
	}
	log.Info("payment captured", zap.String("payment_id", paymentID), zap.Int("amount_cents", amount))

	// Commit is final: the stock was deducted at reserve time, this only
	// retires the reservation row. Its failure must not undo the charge.
	if err := s.Inventory.Commit(ctx, resID); err != nil {
		log.Warn("commit failed, queued for retry", zap.String("reservation_id", resID), zap.Error(err))
		s.enqueue(ctx, "commit", resID, o.ID, log)
	}

	trackingID, err := s.Shipping.Fulfill(ctx, o.ID, o.UserID)
	if err != nil {
		// The charge is captured and the reservation committed, so the
		// order is paid regardless; it just has no shipment yet.
		log.Error("fulfill failed after capture", zap.Error(err))
		paid, perr := s.setPaid(ctx, o.ID, "", log)
		if perr != nil {
			log.Error("set paid failed", zap.Error(perr))
		}
		s.outcome("fulfill_failed")
		return PayResult{Order: paid, PaymentID: paymentID, AmountCents: amount},
			fmt.Errorf("%w: fulfill: %v", ErrUpstream, err)
	}

	paid, err := s.setPaid(ctx, o.ID, trackingID, log)
	if err != nil {
		return PayResult{}, err
	}
	s.notify(ctx, "order_confirmed", o.UserID, map[string]any{
		"order_id": o.ID, "tracking_id": trackingID, "amount_cents": amount,
	}, log)
	s.outcome("paid")
	return PayResult{Order: paid, PaymentID: paymentID, AmountCents: amount}, nil
}

// charge retries up to ChargeAttempts times with a fresh payment id per
// attempt, stopping at the first capture. Transport errors count as failed
// attempts.
func (s *Saga) charge(ctx context.Context, orderID string, amountCents int, log *zap.Logger) (string, bool) {
	attempts := s.ChargeAttempts
	if attempts <= 0 {
		attempts = defaultChargeAttempts
	}
	for i := 1; i <= attempts; i++ {
		pid := fmt.Sprintf("p-%s-%d", orderID, i)
		captured, err := s.Payments.Charge(ctx, pid, amountCents, s.currency(), orderID)
		if err != nil {
			log.Warn("charge attempt errored", zap.Int("attempt", i), zap.Error(err))
			continue
		}
		if captured {
			return pid, true
		}
		log.Info("charge declined", zap.String("payment_id", pid), zap.Int("attempt", i))
	}
	return "", false
}

// setPaid retries the terminal status write: past a captured charge the
// order must not be lost to a transient DB error, or it would sit in the
// in-flight 'paying' status until the admission gate's staleness window
// re-admits it.
func (s *Saga) setPaid(ctx context.Context, id, trackingID string, log *zap.Logger) (Order, error) {
	var lastErr error
	for i := 1; i <= 3; i++ {
		o, err := s.Store.SetPaid(ctx, id, trackingID)
		if err == nil {
			return o, nil
		}
		lastErr = err
		log.Warn("set paid failed", zap.Int("attempt", i), zap.Error(err))
	}
	return Order{}, lastErr
}

// release compensates a reservation. A failed release leaks stock, so it is
// queued for background retry rather than dropped.
func (s *Saga) release(ctx context.Context, resID, orderID string, log *zap.Logger) {
	err := s.Inventory.Release(ctx, resID)
	if err == nil {
		s.compensation("release", "ok")
		return
	}
	log.Warn("release failed, queued for retry", zap.String("reservation_id", resID), zap.Error(err))
	s.enqueue(ctx, "release", resID, orderID, log)
}

func (s *Saga) enqueue(ctx context.Context, action, resID, orderID string, log *zap.Logger) {
	s.compensation(action, "queued")
	if s.Comp == nil {
		return
	}
	if err := s.Comp.Enqueue(ctx, action, resID, orderID); err != nil {
		// last resort: the inconsistency is now only visible in logs
		log.Error("compensation enqueue failed", zap.String("action", action), zap.Error(err))
		s.compensation(action, "lost")
	}
}

func (s *Saga) fail(ctx context.Context, orderID string, log *zap.Logger) {
	if err := s.Store.SetStatus(ctx, orderID, StatusFailed); err != nil {
		log.Error("set status failed", zap.Error(err))
	}
}

func (s *Saga) notify(ctx context.Context, typ, to string, payload map[string]any, log *zap.Logger) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify.Send(ctx, typ, to, payload); err != nil {
		log.Warn("notify failed", zap.String("type", typ), zap.Error(err))
	}
}

func (s *Saga) outcome(v string) {
	if s.Metrics != nil {
		s.Metrics.Outcomes.WithLabelValues(v).Inc()
	}
}

func (s *Saga) compensation(action, result string) {
	if s.Metrics != nil {
		s.Metrics.Compensations.WithLabelValues(action, result).Inc()
	}
}

func (s *Saga) currency() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

func (s *Saga) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
