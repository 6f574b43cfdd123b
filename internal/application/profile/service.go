package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/telecare-api/internal/domain"
	s3infra "github.com/telecare-api/internal/infrastructure/s3"
	"github.com/telecare-api/internal/pkg/id"
	"github.com/telecare-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldEmail     = "email"
	fieldPhone     = "phone"
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
	fieldSpecialty = "specialty"
	fieldRole      = "role"
	fieldEnable    = "enable"
	fieldAvatarKey = "avatar_key"
)

const avatarURLTTL = 15 * time.Minute

type Service interface {
	Create(ctx context.Context, req domain.CreateProfileRequest) (*domain.Profile, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Profile, string, error)
	ListDoctors(ctx context.Context) ([]domain.Profile, error)
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
	Update(ctx context.Context, profileID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	Delete(ctx context.Context, profileID string) error
	UploadAvatar(ctx context.Context, profileID, filename string, r io.Reader) (*domain.Profile, error)
	AvatarURL(ctx context.Context, profileID string) (string, error)
}

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListByRole(ctx context.Context, role string) ([]domain.Profile, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Profile, string, error)
	Update(ctx context.Context, profileID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, profileID string) error
}

type sessionStore interface {
	SoftDeleteByProfile(ctx context.Context, profileID string) error
}

type avatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo        profileStore
	sessionRepo sessionStore
	avatars     avatarStore
}

type ServiceDeps struct {
	ProfileRepo profileStore
	SessionRepo sessionStore
	Avatars     avatarStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.ProfileRepo,
		sessionRepo: deps.SessionRepo,
		avatars:     deps.Avatars,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateProfileRequest) (*domain.Profile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &domain.Profile{
		ProfileID:    id.New(),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Specialty:    req.Specialty,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Profile, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

// ListDoctors backs the caller directory shown before starting a call.
func (s *service) ListDoctors(ctx context.Context) ([]domain.Profile, error) {
	doctors, err := s.repo.ListByRole(ctx, domain.RoleDoctor)
	if err != nil {
		return nil, err
	}
	active := doctors[:0]
	for _, d := range doctors {
		if d.Enable == 1 && d.DeletedAt == nil {
			active = append(active, d)
		}
	}
	return active, nil
}

func (s *service) Get(ctx context.Context, profileID string) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.Enable != 1 || p.DeletedAt != nil {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, profileID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Email != nil {
		if existing, err := s.repo.GetByEmail(ctx, *req.Email); err == nil && existing.ProfileID != profileID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		updates[fieldEmail] = *req.Email
	}
	if req.Phone != nil {
		updates[fieldPhone] = *req.Phone
	}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if req.Specialty != nil {
		updates[fieldSpecialty] = *req.Specialty
	}
	if req.Role != nil {
		updates[fieldRole] = *req.Role
	}
	if req.Enable != nil {
		updates[fieldEnable] = *req.Enable
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, profileID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, profileID)
}

// Delete soft-deletes the profile and revokes its sessions so a deleted
// account cannot keep receiving calls on an existing login.
func (s *service) Delete(ctx context.Context, profileID string) error {
	if err := s.repo.SoftDelete(ctx, profileID); err != nil {
		return err
	}
	if err := s.sessionRepo.SoftDeleteByProfile(ctx, profileID); err != nil {
		slog.Warn("revoking sessions for deleted profile failed", "profile_id", profileID, "err", err)
	}
	return nil
}

func (s *service) UploadAvatar(ctx context.Context, profileID, filename string, r io.Reader) (*domain.Profile, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return nil, fmt.Errorf("unsupported avatar format %q: %w", ext, domain.ErrBadRequest)
	}
	key := fmt.Sprintf("avatars/%s/%s%s", profileID, id.New(), ext)
	if _, err := s.avatars.Upload(ctx, key, r, s3infra.DetectContentType(filename)); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, profileID, map[string]interface{}{fieldAvatarKey: key}); err != nil {
		return nil, err
	}
	if p.AvatarKey != nil {
		if err := s.avatars.Delete(ctx, *p.AvatarKey); err != nil {
			slog.Warn("deleting replaced avatar failed", "key", *p.AvatarKey, "err", err)
		}
	}
	p.AvatarKey = &key
	return p, nil
}

func (s *service) AvatarURL(ctx context.Context, profileID string) (string, error) {
	p, err := s.Get(ctx, profileID)
	if err != nil {
		return "", err
	}
	if p.AvatarKey == nil {
		return "", fmt.Errorf("profile has no avatar: %w", domain.ErrNotFound)
	}
	url, err := s.avatars.PresignedURL(ctx, *p.AvatarKey, avatarURLTTL)
	if err != nil {
		return "", err
	}
	return url, nil
}
