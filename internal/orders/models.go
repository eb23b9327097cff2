package orders

import "time"

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Order is the saga's root record. Reservation, payment and shipment rows
// live in their owning services and are referenced by id only.
type Order struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	UserID     string    `json:"user_id"`
	ProductID  string    `json:"product_id"`
	Qty        int       `json:"qty"`
	Status     Status    `json:"status"`
	TotalCents int       `json:"total_cents"`
	TrackingID string    `json:"tracking_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
