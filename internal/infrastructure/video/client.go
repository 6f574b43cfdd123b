// Package video defines the boundary to the external video-calling SDK.
// The call-session state machine drives these interfaces; the real SDK
// binding lives in the mobile clients, so the server side only carries the
// contract plus the token plumbing.
package video

import (
	"context"

	"github.com/telecare-api/internal/domain"
)

// CallHandle is one call object obtained from the SDK client. Join with
// create=true both creates and enters the call; the camera toggle exists so
// audio calls can drop video right after joining.
type CallHandle interface {
	Join(ctx context.Context, create bool) error
	Leave(ctx context.Context) error
	End(ctx context.Context) error
	DisableCamera(ctx context.Context) error
}

// Client is an authenticated connection to the video SDK for one user.
type Client interface {
	Call(callType domain.CallType, callID string) (CallHandle, error)
}

// ClientFactory creates SDK clients from a user id plus a credential obtained
// from the token endpoint.
type ClientFactory interface {
	NewClient(ctx context.Context, profileID, credential string) (Client, error)
}

// TokenSource obtains a video-SDK credential for a user. The HTTP
// implementation in token.go talks to the backend token endpoint; tests
// substitute a stub.
type TokenSource interface {
	Token(ctx context.Context, profileID string) (string, error)
}
