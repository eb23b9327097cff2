package payments

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("payment not found")
	ErrConflict = errors.New("payment not refundable")
)

const (
	StatusCaptured = "captured"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

type Payment struct {
	ID          string    `json:"payment_id"`
	OrderID     string    `json:"order_id,omitempty"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store interface {
	Insert(ctx context.Context, p Payment) (Payment, error)
	// Refund flips captured -> refunded; ErrConflict for any other status.
	Refund(ctx context.Context, paymentID string) (Payment, error)
	GetByID(ctx context.Context, paymentID string) (Payment, error)
	GetByOrder(ctx context.Context, orderID string) ([]Payment, error)
}

type Service struct {
	Store Store
	Log   *zap.Logger
}

// Captured decides a charge outcome from the payment id's trailing digit:
// even captures, odd fails. A stand-in for a real gateway call; kept
// deterministic so the saga's retry scenarios are reproducible.
func Captured(paymentID string) bool {
	for i := len(paymentID) - 1; i >= 0; i-- {
		c := paymentID[i]
		if c >= '0' && c <= '9' {
			return (c-'0')%2 == 0
		}
	}
	return false
}

// Charge persists a payment record whether captured or declined and reports
// the outcome.
func (s *Service) Charge(ctx context.Context, paymentID string, amountCents int, currency, orderID string) (Payment, error) {
	status := StatusFailed
	if Captured(paymentID) {
		status = StatusCaptured
	}
	p, err := s.Store.Insert(ctx, Payment{
		ID:          paymentID,
		OrderID:     orderID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      status,
	})
	if err != nil {
		return Payment{}, err
	}
	s.Log.Info("charge",
		zap.String("payment_id", p.ID),
		zap.String("order_id", p.OrderID),
		zap.Int("amount_cents", p.AmountCents),
		zap.String("status", p.Status))
	return p, nil
}

// Refund is valid only from captured; anything else is a conflict and
// leaves the record untouched.
func (s *Service) Refund(ctx context.Context, paymentID string) (Payment, error) {
	p, err := s.Store.Refund(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	s.Log.Info("refund", zap.String("payment_id", p.ID))
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, paymentID string) (Payment, error) {
	return s.Store.GetByID(ctx, paymentID)
}

func (s *Service) GetByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	return s.Store.GetByOrder(ctx, orderID)
}
