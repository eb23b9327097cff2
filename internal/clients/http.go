package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-shop-saga.git/internal/orders"
)

// HTTP implementations of the saga's leaf interfaces. Every call carries
// the shared client's timeout; a transport error or timeout surfaces as
// orders.ErrUpstream so the saga compensates the same way it would for an
// explicit failure response.

func postJSON(ctx context.Context, hc *http.Client, url string, body, out any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", orders.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %v", orders.ErrUpstream, err)
		}
	}
	return resp.StatusCode, nil
}

type Inventory struct {
	BaseURL string
	HC      *http.Client
}

func (c *Inventory) Reserve(ctx context.Context, reservationID, productID string, qty int) error {
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/inventory/reserve", map[string]any{
		"reservation_id": reservationID,
		"product_id":     productID,
		"qty":            qty,
	}, nil)
	if err != nil {
		return err
	}
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return orders.ErrInsufficientStock
	default:
		return fmt.Errorf("%w: reserve: status %d", orders.ErrUpstream, code)
	}
}

func (c *Inventory) Commit(ctx context.Context, reservationID string) error {
	return c.retire(ctx, "commit", reservationID)
}

func (c *Inventory) Release(ctx context.Context, reservationID string) error {
	return c.retire(ctx, "release", reservationID)
}

func (c *Inventory) retire(ctx context.Context, op, reservationID string) error {
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/inventory/"+op, map[string]any{
		"reservation_id": reservationID,
	}, nil)
	if err != nil {
		return err
	}
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return orders.ErrNotFound
	default:
		return fmt.Errorf("%w: %s: status %d", orders.ErrUpstream, op, code)
	}
}

type Payments struct {
	BaseURL string
	HC      *http.Client
}

func (c *Payments) Charge(ctx context.Context, paymentID string, amountCents int, currency, orderID string) (bool, error) {
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/payments/charge", map[string]any{
		"payment_id":   paymentID,
		"amount_cents": amountCents,
		"currency":     currency,
		"order_id":     orderID,
	}, nil)
	if err != nil {
		return false, err
	}
	switch code {
	case http.StatusOK:
		return true, nil
	case http.StatusPaymentRequired:
		return false, nil
	default:
		return false, fmt.Errorf("%w: charge: status %d", orders.ErrUpstream, code)
	}
}

type Shipping struct {
	BaseURL string
	HC      *http.Client
}

func (c *Shipping) Fulfill(ctx context.Context, orderID, userID string) (string, error) {
	var out struct {
		TrackingID string `json:"tracking_id"`
	}
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/shipping/fulfill", map[string]any{
		"order_id": orderID,
		"user_id":  userID,
	}, &out)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("%w: fulfill: status %d", orders.ErrUpstream, code)
	}
	return out.TrackingID, nil
}

type Notify struct {
	BaseURL string
	HC      *http.Client
}

func (c *Notify) Send(ctx context.Context, typ, to string, payload map[string]any) error {
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/notify", map[string]any{
		"type":    typ,
		"to":      to,
		"payload": payload,
	}, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: notify: status %d", orders.ErrUpstream, code)
	}
	return nil
}

// Orders lets the shipment tracker push stage changes back into the order
// ledger.
type Orders struct {
	BaseURL string
	HC      *http.Client
}

func (c *Orders) PushStatus(ctx context.Context, orderID, status string) error {
	code, err := postJSON(ctx, c.HC, c.BaseURL+"/orders/"+orderID+"/status", map[string]any{
		"status": status,
	}, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: status push: status %d", orders.ErrUpstream, code)
	}
	return nil
}
