package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/telecare-api/internal/application/call"
	"github.com/telecare-api/internal/domain"
	jwtinfra "github.com/telecare-api/internal/infrastructure/jwt"
	"github.com/telecare-api/internal/transport/http/middleware"
)

// --- mock ---

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Send(ctx context.Context, senderID string, req domain.SendCallRequest) (*domain.EnrichedCallNotification, error) {
	args := m.Called(ctx, senderID, req)
	if n, _ := args.Get(0).(*domain.EnrichedCallNotification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGateway) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallNotification, error) {
	args := m.Called(ctx, callID, status)
	if n, _ := args.Get(0).(*domain.CallNotification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGateway) Subscribe(receiverID string, fn call.Handler) func() {
	m.Called(receiverID)
	return func() {}
}
func (m *mockGateway) UnsubscribeAll() { m.Called() }
func (m *mockGateway) ListActive(ctx context.Context, receiverID string) ([]domain.EnrichedCallNotification, error) {
	args := m.Called(ctx, receiverID)
	if rows, _ := args.Get(0).([]domain.EnrichedCallNotification); rows != nil {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGateway) Cleanup(ctx context.Context, olderThan time.Duration) int {
	return m.Called(ctx, olderThan).Int(0)
}

// --- helpers ---

func authedRequest(method, target string, body []byte, claims *jwtinfra.Claims) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	return req
}

func patientClaims() *jwtinfra.Claims {
	return &jwtinfra.Claims{ProfileID: "pat-1", Role: domain.RolePatient, SessionID: "sess-1"}
}

func callRouter(h *CallHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/calls", h.Send)
	r.Put("/calls/{callID}/status", h.UpdateStatus)
	r.Get("/calls/active", h.ListActive)
	r.Post("/calls/cleanup", h.Cleanup)
	return r
}

// --- Send ---

func TestCallSend_Created(t *testing.T) {
	gw := &mockGateway{}
	enriched := &domain.EnrichedCallNotification{
		CallNotification: domain.CallNotification{
			NotificationID: "n-1",
			SenderID:       "pat-1",
			ReceiverID:     "doc-1",
			CallID:         "call123",
			CallType:       domain.CallTypeVideo,
			Status:         domain.CallStatusPending,
		},
	}
	gw.On("Send", mock.Anything, "pat-1", domain.SendCallRequest{ReceiverID: "doc-1", CallType: domain.CallTypeVideo}).
		Return(enriched, nil)

	body := []byte(`{"receiver_id":"doc-1","call_type":"video"}`)
	req := authedRequest(http.MethodPost, "/calls", body, patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var env CallEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.Data)
	assert.Equal(t, "call123", env.Data.CallID)
	assert.Equal(t, domain.CallStatusPending, env.Data.Status)
}

func TestCallSend_NoClaims(t *testing.T) {
	gw := &mockGateway{}
	req := authedRequest(http.MethodPost, "/calls", []byte(`{"receiver_id":"doc-1"}`), nil)
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestCallSend_ReceiverMissing(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Send", mock.Anything, "pat-1", mock.Anything).
		Return(nil, fmt.Errorf("receiver profile ghost: %w", domain.ErrNotFound))

	req := authedRequest(http.MethodPost, "/calls", []byte(`{"receiver_id":"ghost"}`), patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- UpdateStatus ---

func TestCallUpdateStatus_OK(t *testing.T) {
	gw := &mockGateway{}
	gw.On("UpdateStatus", mock.Anything, "call123", domain.CallStatusEnded).
		Return(&domain.CallNotification{CallID: "call123", Status: domain.CallStatusEnded}, nil)

	req := authedRequest(http.MethodPut, "/calls/call123/status", []byte(`{"status":"ended"}`), patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env CallEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, domain.CallStatusEnded, env.Data.Status)
}

func TestCallUpdateStatus_UnknownCallIsNoOp(t *testing.T) {
	gw := &mockGateway{}
	gw.On("UpdateStatus", mock.Anything, "ghost", domain.CallStatusEnded).Return(nil, nil)

	req := authedRequest(http.MethodPut, "/calls/ghost/status", []byte(`{"status":"ended"}`), patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "no matching call")
}

func TestCallUpdateStatus_IllegalTransition(t *testing.T) {
	gw := &mockGateway{}
	gw.On("UpdateStatus", mock.Anything, "call123", domain.CallStatusAnswered).
		Return(nil, fmt.Errorf("call123: ended -> answered: %w", domain.ErrConflict))

	req := authedRequest(http.MethodPut, "/calls/call123/status", []byte(`{"status":"answered"}`), patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

// --- ListActive / Cleanup ---

func TestCallListActive_EmptyListNotNull(t *testing.T) {
	gw := &mockGateway{}
	gw.On("ListActive", mock.Anything, "pat-1").Return([]domain.EnrichedCallNotification{}, nil)

	req := authedRequest(http.MethodGet, "/calls/active", nil, patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestCallCleanup_DefaultsRetention(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Cleanup", mock.Anything, 24*time.Hour).Return(7)

	req := authedRequest(http.MethodPost, "/calls/cleanup", nil, patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":7}`, rr.Body.String())
}

func TestCallCleanup_CustomRetention(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Cleanup", mock.Anything, 48*time.Hour).Return(0)

	req := authedRequest(http.MethodPost, "/calls/cleanup?older_than_hours=48", nil, patientClaims())
	rr := httptest.NewRecorder()
	callRouter(NewCallHandler(gw)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}
