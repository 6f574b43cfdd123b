package videotoken

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/telecare-api/internal/domain"
)

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, profileID string) (*domain.Profile, error) {
	args := m.Called(ctx, profileID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) SignVideoCredential(profileID string) (string, error) {
	args := m.Called(profileID)
	return args.String(0), args.Error(1)
}

func enabled(profileID string) *domain.Profile {
	return &domain.Profile{ProfileID: profileID, Role: domain.RolePatient, Enable: 1}
}

func TestIssue_SelfService(t *testing.T) {
	pr, signer := &mockProfileStore{}, &mockSigner{}
	pr.On("Get", mock.Anything, "pat-1").Return(enabled("pat-1"), nil)
	signer.On("SignVideoCredential", "pat-1").Return("video-jwt", nil)

	cred, err := NewService(pr, signer).Issue(context.Background(), "pat-1", domain.RolePatient, "pat-1")

	require.NoError(t, err)
	assert.Equal(t, "video-jwt", cred)
}

func TestIssue_AdminOnBehalf(t *testing.T) {
	pr, signer := &mockProfileStore{}, &mockSigner{}
	pr.On("Get", mock.Anything, "pat-1").Return(enabled("pat-1"), nil)
	signer.On("SignVideoCredential", "pat-1").Return("video-jwt", nil)

	_, err := NewService(pr, signer).Issue(context.Background(), "admin-1", domain.RoleAdmin, "pat-1")
	assert.NoError(t, err)
}

func TestIssue_ForbiddenForOtherUser(t *testing.T) {
	pr, signer := &mockProfileStore{}, &mockSigner{}

	_, err := NewService(pr, signer).Issue(context.Background(), "pat-1", domain.RolePatient, "pat-2")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	signer.AssertNotCalled(t, "SignVideoCredential", mock.Anything)
}

func TestIssue_DisabledProfile(t *testing.T) {
	pr, signer := &mockProfileStore{}, &mockSigner{}
	p := enabled("pat-1")
	p.Enable = 0
	pr.On("Get", mock.Anything, "pat-1").Return(p, nil)

	_, err := NewService(pr, signer).Issue(context.Background(), "pat-1", domain.RolePatient, "pat-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestIssue_UnknownProfile(t *testing.T) {
	pr, signer := &mockProfileStore{}, &mockSigner{}
	pr.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := NewService(pr, signer).Issue(context.Background(), "ghost", domain.RolePatient, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
