package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderPayFailed = "OrderPayFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID    string `json:"order_id"`
	ExternalID string `json:"external_id,omitempty"`
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	TotalCents int    `json:"total_cents"`
}

type OrderPaidPayload struct {
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	TrackingID  string `json:"tracking_id"`
	AmountCents int    `json:"amount_cents"`
}

type OrderPayFailedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"` // OUT_OF_STOCK | PAYMENT_DECLINED | UPSTREAM
}
