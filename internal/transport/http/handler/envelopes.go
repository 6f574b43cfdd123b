package handler

import (
	"encoding/json"
	"net/http"

	"github.com/telecare-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login/refresh responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Profile      *domain.Profile `json:"profile,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

// PaginatedProfilesEnvelope wraps cursor-paginated profile lists.
type PaginatedProfilesEnvelope struct {
	Data       []domain.Profile `json:"data"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CallEnvelope wraps a single call notification.
type CallEnvelope struct {
	Data *domain.EnrichedCallNotification `json:"data"`
}

// CallsEnvelope wraps the active-call reconciliation list.
type CallsEnvelope struct {
	Data []domain.EnrichedCallNotification `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
