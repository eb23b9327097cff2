package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
)

type Reservation struct {
	ID        string `json:"reservation_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Store owns stock counters and reservation rows. Reserve must run the
// check-and-decrement under an exclusive lock on the stock row; that is the
// one place in the system that needs true mutual exclusion.
type Store interface {
	Reserve(ctx context.Context, reservationID, productID string, qty int) error
	Commit(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
	SetStock(ctx context.Context, productID string, qty int) error
	GetStock(ctx context.Context, productID string) (int, error)
}

type Service struct {
	Store Store
	Log   *zap.Logger
}

// Reserve holds qty against the product's stock. The deduction happens now;
// commit later only retires the reservation row.
func (s *Service) Reserve(ctx context.Context, reservationID, productID string, qty int) error {
	if reservationID == "" || productID == "" {
		return fmt.Errorf("reservation_id and product_id are required")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	if err := s.Store.Reserve(ctx, reservationID, productID, qty); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.Log.Info("reserve rejected",
				zap.String("reservation_id", reservationID),
				zap.String("product_id", productID),
				zap.Int("qty", qty))
		}
		return err
	}
	s.Log.Info("reserved",
		zap.String("reservation_id", reservationID),
		zap.String("product_id", productID),
		zap.Int("qty", qty))
	return nil
}

// Commit retires the reservation. A second commit is NotFound, not a no-op:
// it signals a logic bug upstream and must be visible.
func (s *Service) Commit(ctx context.Context, reservationID string) error {
	if err := s.Store.Commit(ctx, reservationID); err != nil {
		return err
	}
	s.Log.Info("committed", zap.String("reservation_id", reservationID))
	return nil
}

// Release returns the reserved qty to stock and retires the reservation.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	if err := s.Store.Release(ctx, reservationID); err != nil {
		return err
	}
	s.Log.Info("released", zap.String("reservation_id", reservationID))
	return nil
}

// SetStock is the admin absolute set; the handler gates it on the admin token.
func (s *Service) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("qty must not be negative")
	}
	if err := s.Store.SetStock(ctx, productID, qty); err != nil {
		return err
	}
	s.Log.Info("stock set", zap.String("product_id", productID), zap.Int("qty", qty))
	return nil
}

func (s *Service) GetStock(ctx context.Context, productID string) (int, error) {
	return s.Store.GetStock(ctx, productID)
}
