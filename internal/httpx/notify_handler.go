package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/notify"
)

type NotifyHandler struct {
	Svc *notify.Service
	Log *zap.Logger
}

type NotifyReq struct {
	Type    string          `json:"type"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (h *NotifyHandler) Register(r *chi.Mux) {
	r.Post("/notify", h.send)
}

func (h *NotifyHandler) send(w http.ResponseWriter, r *http.Request) {
	var req NotifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Type == "" {
		writeErr(w, http.StatusBadRequest, "type is required")
		return
	}

	n, err := h.Svc.Record(r.Context(), req.Type, req.To, req.Payload)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true, "id": n.ID})
}
