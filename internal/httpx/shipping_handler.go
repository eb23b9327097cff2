package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/shipping"
)

type ShippingHandler struct {
	Svc *shipping.Service
	Log *zap.Logger
}

type FulfillReq struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id,omitempty"`
}

type AdvanceReq struct {
	TrackingID string `json:"tracking_id"`
}

func (h *ShippingHandler) Register(r *chi.Mux) {
	r.Post("/shipping/fulfill", h.fulfill)
	r.Post("/shipping/advance", h.advance)
	r.Get("/shipping/track/{trackingID}", h.track)
}

func (h *ShippingHandler) fulfill(w http.ResponseWriter, r *http.Request) {
	var req FulfillReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" {
		writeErr(w, http.StatusBadRequest, "order_id is required")
		return
	}

	sh, err := h.Svc.Fulfill(r.Context(), req.OrderID, req.UserID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tracking_id": sh.TrackingID, "status": sh.Status})
}

func (h *ShippingHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.TrackingID == "" {
		writeErr(w, http.StatusBadRequest, "tracking_id is required")
		return
	}

	sh, done, err := h.Svc.Advance(r.Context(), req.TrackingID)
	if errors.Is(err, shipping.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "shipment not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": sh.Status, "done": done})
}

func (h *ShippingHandler) track(w http.ResponseWriter, r *http.Request) {
	sh, err := h.Svc.Track(r.Context(), chi.URLParam(r, "trackingID"))
	if errors.Is(err, shipping.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "shipment not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sh)
}
