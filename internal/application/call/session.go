package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/telecare-api/internal/domain"
	"github.com/telecare-api/internal/infrastructure/video"
)

// SessionState is the lifecycle phase of one in-call session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionInitializing
	// SessionIncomingOffered: ringing locally, media not joined yet.
	SessionIncomingOffered
	SessionJoining
	SessionActive
	SessionEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionInitializing:
		return "initializing"
	case SessionIncomingOffered:
		return "incoming-offered"
	case SessionJoining:
		return "joining"
	case SessionActive:
		return "active"
	case SessionEnded:
		return "ended"
	}
	return "unknown"
}

// Session drives one call's media lifecycle against the video-SDK boundary.
// Outgoing calls join immediately after initialization; incoming calls ring
// in SessionIncomingOffered until Answer. There are no timeout-driven
// transitions: a ringing session stays ringing until acted on.
type Session struct {
	profileID string
	callID    string
	callType  domain.CallType
	incoming  bool

	tokens  video.TokenSource
	factory video.ClientFactory

	mu      sync.Mutex
	state   SessionState
	handle  video.CallHandle
	failure error
}

func NewSession(factory video.ClientFactory, tokens video.TokenSource, profileID, callID string, callType domain.CallType, incoming bool) *Session {
	return &Session{
		profileID: profileID,
		callID:    callID,
		callType:  callType,
		incoming:  incoming,
		tokens:    tokens,
		factory:   factory,
		state:     SessionIdle,
	}
}

// Start acquires the SDK client and call handle. Incoming sessions end up
// ringing in SessionIncomingOffered; outgoing sessions join media directly.
// Any initialization failure moves the session to SessionEnded and is
// returned for the UI to surface; there is no retry loop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SessionIdle {
		s.mu.Unlock()
		return fmt.Errorf("session already started (%s): %w", s.state, domain.ErrConflict)
	}
	s.state = SessionInitializing
	s.mu.Unlock()

	credential, err := s.tokens.Token(ctx, s.profileID)
	if err != nil {
		return s.fail(fmt.Errorf("acquire video credential: %w", err))
	}
	client, err := s.factory.NewClient(ctx, s.profileID, credential)
	if err != nil {
		return s.fail(fmt.Errorf("create video client: %w", err))
	}
	handle, err := client.Call(s.callType, s.callID)
	if err != nil {
		return s.fail(fmt.Errorf("create call object: %w", err))
	}

	s.mu.Lock()
	s.handle = handle
	if s.incoming {
		s.state = SessionIncomingOffered
		s.mu.Unlock()
		return nil
	}
	s.state = SessionJoining
	s.mu.Unlock()

	return s.join(ctx)
}

// Answer joins media for a ringing incoming session.
func (s *Session) Answer(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SessionIncomingOffered {
		s.mu.Unlock()
		return fmt.Errorf("answer in state %s: %w", s.state, domain.ErrConflict)
	}
	s.state = SessionJoining
	s.mu.Unlock()

	return s.join(ctx)
}

// join enters the call and, for audio calls, disables the camera right after.
// The camera toggle is best-effort: a failure is logged, not fatal.
func (s *Session) join(ctx context.Context) error {
	if err := s.handle.Join(ctx, true); err != nil {
		return s.fail(fmt.Errorf("join call: %w", err))
	}
	if s.callType == domain.CallTypeAudio {
		if err := s.handle.DisableCamera(ctx); err != nil {
			slog.Warn("disable camera failed", "call_id", s.callID, "err", err)
		}
	}

	s.mu.Lock()
	s.state = SessionActive
	s.mu.Unlock()
	return nil
}

// End tears the session down. When media was joined it is left first,
// best-effort; terminate additionally ends the call for the remote side.
// End is safe to call from any state and is idempotent once ended.
func (s *Session) End(ctx context.Context, terminate bool) {
	s.mu.Lock()
	if s.state == SessionEnded {
		s.mu.Unlock()
		return
	}
	wasActive := s.state == SessionActive
	handle := s.handle
	s.state = SessionEnded
	s.mu.Unlock()

	if handle == nil {
		return
	}
	if wasActive {
		if err := handle.Leave(ctx); err != nil {
			slog.Warn("leave call failed", "call_id", s.callID, "err", err)
		}
	}
	if terminate {
		if err := handle.End(ctx); err != nil {
			slog.Warn("end call failed", "call_id", s.callID, "err", err)
		}
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failure returns the error that terminated the session, if any; the UI
// surfaces it as an alert before closing the overlay.
func (s *Session) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = SessionEnded
	s.failure = err
	s.mu.Unlock()
	return err
}
