package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/inventory"
)

type InventoryHandler struct {
	Svc        *inventory.Service
	AdminToken string
	Log        *zap.Logger
}

type ReserveReq struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	Qty           int    `json:"qty"`
}

type RetireReq struct {
	ReservationID string `json:"reservation_id"`
}

type SetStockReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Post("/inventory/reserve", h.reserve)
	r.Post("/inventory/commit", h.commit)
	r.Post("/inventory/release", h.release)
	r.Post("/inventory/stock", h.setStock)
	r.Get("/inventory/stock/{productID}", h.getStock)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ReservationID == "" || req.ProductID == "" || req.Qty <= 0 {
		writeErr(w, http.StatusBadRequest, "reservation_id, product_id and positive qty are required")
		return
	}

	err := h.Svc.Reserve(r.Context(), req.ReservationID, req.ProductID, req.Qty)
	if errors.Is(err, inventory.ErrInsufficientStock) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient stock", "code": "INSUFFICIENT_STOCK"})
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reservation_id": req.ReservationID, "status": "reserved"})
}

func (h *InventoryHandler) commit(w http.ResponseWriter, r *http.Request) {
	h.retire(w, r, h.Svc.Commit, "committed")
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	h.retire(w, r, h.Svc.Release, "released")
}

func (h *InventoryHandler) retire(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error, done string) {
	var req RetireReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ReservationID == "" {
		writeErr(w, http.StatusBadRequest, "reservation_id is required")
		return
	}

	err := op(r.Context(), req.ReservationID)
	if errors.Is(err, inventory.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "reservation not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reservation_id": req.ReservationID, "status": done})
}

// setStock is the administrative absolute set; it requires the shared admin
// token.
func (h *InventoryHandler) setStock(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Admin-Token") != h.AdminToken {
		writeErr(w, http.StatusForbidden, "admin token required")
		return
	}

	var req SetStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Qty < 0 {
		writeErr(w, http.StatusBadRequest, "product_id and non-negative qty are required")
		return
	}

	if err := h.Svc.SetStock(r.Context(), req.ProductID, req.Qty); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": req.ProductID, "qty": req.Qty})
}

func (h *InventoryHandler) getStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	qty, err := h.Svc.GetStock(r.Context(), productID)
	if errors.Is(err, inventory.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "qty": qty})
}
