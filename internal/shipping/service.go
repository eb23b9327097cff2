package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("shipment not found")

type Stage struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

type Shipment struct {
	TrackingID string    `json:"tracking_id"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id,omitempty"`
	Status     string    `json:"status"`
	Stages     []Stage   `json:"stages,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Store interface {
	// CreateOrGet makes fulfill idempotent per order: a second fulfill for
	// the same order returns the existing shipment.
	CreateOrGet(ctx context.Context, sh Shipment) (Shipment, error)
	// Advance appends the next stage under a row lock and reports
	// done=true without writing when the shipment is already terminal.
	Advance(ctx context.Context, trackingID string) (Shipment, bool, error)
	Get(ctx context.Context, trackingID string) (Shipment, error)
}

// OrderPusher pushes a stage change back into the order ledger.
type OrderPusher interface {
	PushStatus(ctx context.Context, orderID, status string) error
}

type Notifier interface {
	Send(ctx context.Context, typ, to string, payload map[string]any) error
}

type Service struct {
	Store  Store
	Orders OrderPusher
	Notify Notifier
	Log    *zap.Logger
}

// Fulfill creates a shipment at the initial processing stage and returns
// its tracking id.
func (s *Service) Fulfill(ctx context.Context, orderID, userID string) (Shipment, error) {
	if orderID == "" {
		return Shipment{}, fmt.Errorf("order_id is required")
	}
	sh, err := s.Store.CreateOrGet(ctx, Shipment{
		TrackingID: "trk-" + uuid.NewString(),
		OrderID:    orderID,
		UserID:     userID,
		Status:     StageProcessing,
	})
	if err != nil {
		return Shipment{}, err
	}
	s.Log.Info("fulfilled", zap.String("order_id", orderID), zap.String("tracking_id", sh.TrackingID))
	return sh, nil
}

// Advance moves the shipment one stage forward. Past the terminal stage it
// is a no-op reporting done=true. The order-status push and the
// notification are independent side effects: their failure is logged, never
// rolled back into the stage transition.
func (s *Service) Advance(ctx context.Context, trackingID string) (Shipment, bool, error) {
	sh, done, err := s.Store.Advance(ctx, trackingID)
	if err != nil {
		return Shipment{}, false, err
	}
	if done {
		return sh, true, nil
	}
	s.Log.Info("advanced", zap.String("tracking_id", trackingID), zap.String("stage", sh.Status))

	if s.Orders != nil {
		if err := s.Orders.PushStatus(ctx, sh.OrderID, sh.Status); err != nil {
			s.Log.Warn("order status push failed",
				zap.String("order_id", sh.OrderID),
				zap.String("status", sh.Status),
				zap.Error(err))
		}
	}
	if s.Notify != nil {
		if err := s.Notify.Send(ctx, "shipment_"+sh.Status, sh.UserID, map[string]any{
			"order_id":    sh.OrderID,
			"tracking_id": sh.TrackingID,
			"status":      sh.Status,
		}); err != nil {
			s.Log.Warn("notify failed", zap.String("tracking_id", trackingID), zap.Error(err))
		}
	}
	return sh, Terminal(sh.Status), nil
}

func (s *Service) Track(ctx context.Context, trackingID string) (Shipment, error) {
	return s.Store.Get(ctx, trackingID)
}
