package videotoken

import (
	"context"
	"fmt"

	"github.com/telecare-api/internal/domain"
)

// Service mints short-lived video-SDK credentials. The credential proves to
// the media layer that the backend vouches for the user; clients exchange it
// for an SDK session when joining a call.
type Service interface {
	Issue(ctx context.Context, requestorID, requestorRole, targetID string) (string, error)
}

type profileStore interface {
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
}

type credentialSigner interface {
	SignVideoCredential(profileID string) (string, error)
}

type service struct {
	profiles profileStore
	signer   credentialSigner
}

func NewService(profiles profileStore, signer credentialSigner) Service {
	return &service{profiles: profiles, signer: signer}
}

// Issue returns a credential for targetID. Users may only mint credentials
// for themselves; admins may mint on behalf of any enabled profile.
func (s *service) Issue(ctx context.Context, requestorID, requestorRole, targetID string) (string, error) {
	if requestorID != targetID && requestorRole != domain.RoleAdmin {
		return "", fmt.Errorf("cannot mint video credential for another user: %w", domain.ErrForbidden)
	}
	p, err := s.profiles.Get(ctx, targetID)
	if err != nil {
		return "", err
	}
	if p.Enable != 1 || p.DeletedAt != nil {
		return "", fmt.Errorf("profile disabled: %w", domain.ErrForbidden)
	}
	return s.signer.SignVideoCredential(targetID)
}
