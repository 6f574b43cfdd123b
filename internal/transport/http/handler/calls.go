package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/telecare-api/internal/application/call"
	"github.com/telecare-api/internal/domain"
	"github.com/telecare-api/internal/transport/http/middleware"
)

// CallHandler exposes the call-notification gateway over HTTP.
type CallHandler struct {
	gateway call.Gateway
}

func NewCallHandler(gw call.Gateway) *CallHandler { return &CallHandler{gateway: gw} }

// Send creates a call notification and pushes it to the receiver's feed.
func (h *CallHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SendCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.gateway.Send(r.Context(), claims.ProfileID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CallEnvelope{Data: n})
}

// UpdateStatus moves a call through its lifecycle. An unknown call id is a
// no-op: callers race hang-ups against cleanup, so there is nothing to fail.
func (h *CallHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCallStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	row, err := h.gateway.UpdateStatus(r.Context(), chi.URLParam(r, "callID"), req.Status)
	if err != nil {
		httpError(w, err)
		return
	}
	if row == nil {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "no matching call"})
		return
	}
	writeJSON(w, http.StatusOK, CallEnvelope{Data: &domain.EnrichedCallNotification{CallNotification: *row}})
}

// ListActive returns the caller's pending offers, used by clients to
// reconcile after a reconnect.
func (h *CallHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.gateway.ListActive(r.Context(), claims.ProfileID)
	if err != nil {
		httpError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.EnrichedCallNotification{}
	}
	writeJSON(w, http.StatusOK, CallsEnvelope{Data: rows})
}

// Cleanup deletes notifications older than the given retention, admin only.
func (h *CallHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	hours, _ := strconv.Atoi(r.URL.Query().Get("older_than_hours"))
	if hours <= 0 {
		hours = 24
	}
	deleted := h.gateway.Cleanup(r.Context(), time.Duration(hours)*time.Hour)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
