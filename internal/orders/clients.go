package orders

import "context"

// The saga depends on its leaf services through these interfaces so the
// transport can be swapped (HTTP in production, fakes in tests) without
// touching the orchestration logic.

type InventoryClient interface {
	// Reserve returns ErrInsufficientStock when stock is short and
	// ErrUpstream-wrapped errors for transport failures.
	Reserve(ctx context.Context, reservationID, productID string, qty int) error
	Commit(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
}

type PaymentClient interface {
	// Charge reports captured=false for a declined charge; err is reserved
	// for transport failures. A declined charge still persists a payment
	// record on the payment service.
	Charge(ctx context.Context, paymentID string, amountCents int, currency, orderID string) (captured bool, err error)
}

type ShippingClient interface {
	Fulfill(ctx context.Context, orderID, userID string) (trackingID string, err error)
}

// Notifier is fire-and-forget from the saga's point of view: errors are
// logged, never acted on.
type Notifier interface {
	Send(ctx context.Context, typ, to string, payload map[string]any) error
}

// CompensationQueue persists a compensation that could not be delivered so
// a background worker can retry it.
type CompensationQueue interface {
	Enqueue(ctx context.Context, action, reservationID, orderID string) error
}

// Store is the slice of Repo the saga needs.
type Store interface {
	MarkPaying(ctx context.Context, id string) (Order, error)
	SetStatus(ctx context.Context, id string, st Status) error
	SetPaid(ctx context.Context, id, trackingID string) (Order, error)
	ProductPriceCents(ctx context.Context, productID string) (int, error)
}
