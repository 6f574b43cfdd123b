package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/telecare-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, profileID string) (*domain.Profile, error) {
	args := m.Called(ctx, profileID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDeviceStore struct{ mock.Mock }

func (m *mockDeviceStore) GetByUUID(ctx context.Context, uuid string) (*domain.Device, error) {
	args := m.Called(ctx, uuid)
	if d, _ := args.Get(0).(*domain.Device); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceStore) Put(ctx context.Context, d *domain.Device) error {
	return m.Called(ctx, d).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(profileID, deviceID, role, sessionID string) (string, error) {
	args := m.Called(profileID, deviceID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func profileWithPassword(t *testing.T, password string) *domain.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.Profile{
		ProfileID:    "pat-1",
		Email:        "sam@home.test",
		PasswordHash: string(hash),
		Role:         domain.RolePatient,
		FirstName:    "Sam",
		LastName:     "Okafor",
		Enable:       1,
	}
}

func newTestService() (Service, *mockSessionStore, *mockProfileStore, *mockDeviceStore, *mockJWTSigner) {
	sr, pr, dr, signer := &mockSessionStore{}, &mockProfileStore{}, &mockDeviceStore{}, &mockJWTSigner{}
	svc := NewService(ServiceDeps{
		SessionRepo:     sr,
		ProfileRepo:     pr,
		DeviceRepo:      dr,
		JWTProvider:     signer,
		RefreshTokenDur: 30 * 24 * time.Hour,
	})
	return svc, sr, pr, dr, signer
}

// --- Login ---

func TestLogin_IssuesBearerAndRefreshToken(t *testing.T) {
	svc, sr, pr, dr, signer := newTestService()
	pr.On("GetByEmail", mock.Anything, "sam@home.test").Return(profileWithPassword(t, "correct-horse"), nil)
	dr.On("GetByUUID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	dr.On("Put", mock.Anything, mock.AnythingOfType("*domain.Device")).Return(nil)
	sr.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	signer.On("Sign", "pat-1", mock.Anything, domain.RolePatient, mock.Anything).Return("bearer-jwt", nil)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "sam@home.test", Password: "correct-horse"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-jwt", res.Bearer)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.Session)
	assert.True(t, res.Session.Enable)
	assert.Equal(t, "pat-1", res.Session.ProfileID)
	require.NotNil(t, res.Session.Profile)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, pr, _, _ := newTestService()
	pr.On("GetByEmail", mock.Anything, "sam@home.test").Return(profileWithPassword(t, "correct-horse"), nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "sam@home.test", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, pr, _, _ := newTestService()
	pr.On("GetByEmail", mock.Anything, "ghost@home.test").Return(nil, domain.ErrNotFound)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@home.test", Password: "whatever"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, _, pr, _, _ := newTestService()
	p := profileWithPassword(t, "correct-horse")
	p.Enable = 0
	pr.On("GetByEmail", mock.Anything, "sam@home.test").Return(p, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "sam@home.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_ReusesKnownDevice(t *testing.T) {
	svc, sr, pr, dr, signer := newTestService()
	devUUID := "dev-uuid-1"
	pr.On("GetByEmail", mock.Anything, "sam@home.test").Return(profileWithPassword(t, "correct-horse"), nil)
	dr.On("GetByUUID", mock.Anything, devUUID).Return(&domain.Device{DeviceID: "dev-1", UUID: devUUID, ProfileID: "pat-1"}, nil)
	sr.On("Put", mock.Anything, mock.Anything).Return(nil)
	signer.On("Sign", "pat-1", "dev-1", domain.RolePatient, mock.Anything).Return("bearer-jwt", nil)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "sam@home.test", Password: "correct-horse", DeviceUUID: &devUUID})

	require.NoError(t, err)
	assert.Equal(t, "dev-1", res.Session.DeviceID)
	dr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Logout / GetCurrent ---

func TestLogout_DisablesSession(t *testing.T) {
	svc, sr, _, _, _ := newTestService()
	sr.On("Update", mock.Anything, "sess-1", map[string]interface{}{"enable": false}).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), "sess-1"))
	sr.AssertExpectations(t)
}

func TestGetCurrent_RejectsDisabledSession(t *testing.T) {
	svc, sr, _, _, _ := newTestService()
	sr.On("Get", mock.Anything, "sess-1").Return(&domain.Session{SessionID: "sess-1", Enable: false}, nil)

	_, err := svc.GetCurrent(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- Refresh ---

func TestRefresh_RotatesToken(t *testing.T) {
	svc, sr, pr, _, signer := newTestService()
	sess := &domain.Session{
		SessionID:        "sess-1",
		ProfileID:        "pat-1",
		DeviceID:         "dev-1",
		Enable:           true,
		RefreshToken:     "old-token",
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	sr.On("GetByRefreshToken", mock.Anything, "old-token").Return(sess, nil)
	sr.On("RotateRefreshToken", mock.Anything, "sess-1", mock.Anything, mock.Anything).Return(nil)
	pr.On("Get", mock.Anything, "pat-1").Return(profileWithPassword(t, "x"), nil)
	signer.On("Sign", "pat-1", "dev-1", domain.RolePatient, "sess-1").Return("new-bearer", nil)

	bearer, newToken, err := svc.Refresh(context.Background(), "old-token")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, "old-token", newToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, sr, _, _, _ := newTestService()
	sess := &domain.Session{SessionID: "sess-1", RefreshExpiresAt: time.Now().Add(-time.Minute).Unix()}
	sr.On("GetByRefreshToken", mock.Anything, "stale").Return(sess, nil)

	_, _, err := svc.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	sr.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, sr, _, _, _ := newTestService()
	sr.On("GetByRefreshToken", mock.Anything, "bogus").Return(nil, domain.ErrNotFound)

	_, _, err := svc.Refresh(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
