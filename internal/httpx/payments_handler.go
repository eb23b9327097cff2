package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/payments"
)

type PaymentsHandler struct {
	Svc *payments.Service
	Log *zap.Logger
}

type ChargeReq struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
}

type RefundReq struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int    `json:"amount_cents,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments/charge", h.charge)
	r.Post("/payments/refund", h.refund)
	r.Get("/payments/{id}", h.getByID)
	r.Get("/payments/order/{orderID}", h.getByOrder)
}

// charge answers 200 for a captured payment and 402 for a declined one;
// both persist a payment record.
func (h *PaymentsHandler) charge(w http.ResponseWriter, r *http.Request) {
	var req ChargeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PaymentID == "" || req.AmountCents <= 0 {
		writeErr(w, http.StatusBadRequest, "payment_id and positive amount_cents are required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	p, err := h.Svc.Charge(r.Context(), req.PaymentID, req.AmountCents, req.Currency, req.OrderID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusOK
	if p.Status != payments.StatusCaptured {
		code = http.StatusPaymentRequired
	}
	writeJSON(w, code, p)
}

func (h *PaymentsHandler) refund(w http.ResponseWriter, r *http.Request) {
	var req RefundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PaymentID == "" {
		writeErr(w, http.StatusBadRequest, "payment_id is required")
		return
	}

	p, err := h.Svc.Refund(r.Context(), req.PaymentID)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		writeErr(w, http.StatusNotFound, "payment not found")
		return
	case errors.Is(err, payments.ErrConflict):
		writeErr(w, http.StatusConflict, "payment not refundable")
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentsHandler) getByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, payments.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentsHandler) getByOrder(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.GetByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []payments.Payment{}
	}
	writeJSON(w, http.StatusOK, out)
}
