package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-saga.git/internal/kafka"
	"github.com/ariefcatur/go-shop-saga.git/internal/orders"
	"github.com/ariefcatur/go-shop-saga.git/internal/redisx"
)

// OrderStore is the slice of the order repo the HTTP surface needs.
type OrderStore interface {
	CreateOrder(ctx context.Context, externalID, userID, productID string, qty int) (orders.Order, bool, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	ListOrders(ctx context.Context, userID string) ([]orders.Order, error)
	Cancel(ctx context.Context, id string) (orders.Order, error)
	Received(ctx context.Context, id string) (orders.Order, error)
	PushStatus(ctx context.Context, id string, st orders.Status) error
	ListProducts(ctx context.Context) ([]orders.Product, error)
}

type OrdersHandler struct {
	Repo      OrderStore
	Saga      *orders.Saga
	Redis     *redis.Client
	Created   *kafkax.Producer
	Paid      *kafkax.Producer
	PayFailed *kafkax.Producer
	Service   string
	Log       *zap.Logger
}

type CreateOrderReq struct {
	ExternalID string `json:"external_id"`
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
}

type StatusPushReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/pay", h.payOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/received", h.receivedOrder)
	r.Post("/orders/{id}/status", h.pushStatus)
	r.Get("/products", h.listProducts)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" || req.ProductID == "" || req.Qty <= 0 {
		writeErr(w, http.StatusBadRequest, "user_id, product_id and positive qty are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Repo.CreateOrder(ctx, req.ExternalID, req.UserID, req.ProductID, req.Qty)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	}
	h.cacheOrder(ctx, o)

	if !existed {
		h.publish(h.Created, orders.EventOrderCreated, o.ID, r.Header.Get("X-Request-Id"), orders.OrderCreatedPayload{
			OrderID:    o.ID,
			ExternalID: o.ExternalID,
			UserID:     o.UserID,
			ProductID:  o.ProductID,
			Qty:        o.Qty,
			TotalCents: o.TotalCents,
		})
	}

	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.ListOrders(ctx, r.URL.Query().Get("user_id"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB is the source of truth
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

// payOrder runs the fulfillment saga synchronously and maps its terminal
// error to the step that failed: 409 for stock, 402 for a declined charge,
// 503 for upstream trouble.
func (h *OrdersHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	trace := r.Header.Get("X-Request-Id")

	res, err := h.Saga.Pay(r.Context(), orderID)
	if err != nil {
		h.invalidate(r.Context(), orderID)
		switch {
		case errors.Is(err, orders.ErrNotFound):
			writeErr(w, http.StatusNotFound, "order not found")
		case errors.Is(err, orders.ErrNotPayable):
			writeErr(w, http.StatusConflict, "order not payable")
		case errors.Is(err, orders.ErrInsufficientStock):
			h.publish(h.PayFailed, orders.EventOrderPayFailed, orderID, trace,
				orders.OrderPayFailedPayload{OrderID: orderID, Reason: "OUT_OF_STOCK"})
			writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient stock", "code": "INSUFFICIENT_STOCK"})
		case errors.Is(err, orders.ErrPaymentDeclined):
			h.publish(h.PayFailed, orders.EventOrderPayFailed, orderID, trace,
				orders.OrderPayFailedPayload{OrderID: orderID, Reason: "PAYMENT_DECLINED"})
			writeErr(w, http.StatusPaymentRequired, "payment declined")
		default:
			h.publish(h.PayFailed, orders.EventOrderPayFailed, orderID, trace,
				orders.OrderPayFailedPayload{OrderID: orderID, Reason: "UPSTREAM"})
			writeErr(w, http.StatusServiceUnavailable, "upstream failure")
		}
		return
	}

	h.cacheOrder(r.Context(), res.Order)
	h.publish(h.Paid, orders.EventOrderPaid, res.Order.ID, trace, orders.OrderPaidPayload{
		OrderID:     res.Order.ID,
		PaymentID:   res.PaymentID,
		TrackingID:  res.Order.TrackingID,
		AmountCents: res.AmountCents,
	})
	writeJSON(w, http.StatusOK, res.Order)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	o, err := h.Repo.Cancel(r.Context(), orderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeErr(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrNotCancelable):
		writeErr(w, http.StatusConflict, "order not cancelable")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cacheOrder(r.Context(), o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) receivedOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	o, err := h.Repo.Received(r.Context(), orderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeErr(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrNotDelivered):
		writeErr(w, http.StatusConflict, "order not delivered to pickup")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cacheOrder(r.Context(), o)
	writeJSON(w, http.StatusOK, o)
}

// pushStatus is the shipment tracker's write-back: only shipment stages are
// accepted, and only along the status machine's edges.
func (h *OrdersHandler) pushStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req StatusPushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	st := orders.Status(req.Status)
	if !orders.IsShipmentStatus(st) {
		writeErr(w, http.StatusBadRequest, "invalid status")
		return
	}

	err := h.Repo.PushStatus(r.Context(), orderID, st)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeErr(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, "invalid status transition")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidate(r.Context(), orderID)
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.ListProducts(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) invalidate(ctx context.Context, orderID string) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Del(ctx, key).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID, trace string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
