package handler

import (
	"encoding/json"
	"net/http"

	"github.com/telecare-api/internal/application/videotoken"
	"github.com/telecare-api/internal/transport/http/middleware"
)

// VideoTokenHandler mints video-SDK credentials.
type VideoTokenHandler struct {
	svc videotoken.Service
}

func NewVideoTokenHandler(svc videotoken.Service) *VideoTokenHandler {
	return &VideoTokenHandler{svc: svc}
}

func (h *VideoTokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ProfileID string `json:"profile_id"`
	}
	// Body is optional; default to self-service.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.ProfileID == "" {
		req.ProfileID = claims.ProfileID
	}
	cred, err := h.svc.Issue(r.Context(), claims.ProfileID, claims.Role, req.ProfileID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": cred})
}
