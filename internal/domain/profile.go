package domain

import (
	"strings"
	"time"
)

// Participant roles. Stored as plain strings on the profile row and echoed
// into JWT claims for route guards.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Profile is one participant in the telecare system: a patient, a doctor or
// an admin. Profiles are what call notifications get enriched with.
type Profile struct {
	ProfileID    string     `json:"id" dynamodbav:"profile_id"`
	Email        string     `json:"email" dynamodbav:"email"`
	Phone        *string    `json:"phone" dynamodbav:"phone"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         string     `json:"role" dynamodbav:"role"`
	FirstName    string     `json:"first_name" dynamodbav:"first_name"`
	LastName     string     `json:"last_name" dynamodbav:"last_name"`
	Specialty    *string    `json:"specialty,omitempty" dynamodbav:"specialty"`
	AvatarKey    *string    `json:"avatar_key,omitempty" dynamodbav:"avatar_key"`
	Enable       int        `json:"enable" dynamodbav:"enable"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// DisplayName is the label shown on an incoming-call overlay. Falls back to
// a generic label so an un-enriched notification still renders.
func (p *Profile) DisplayName() string {
	if p == nil {
		return "Unknown caller"
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return "Unknown caller"
	}
	return name
}

type CreateProfileRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	Role      string  `json:"role" validate:"required,oneof=patient doctor admin"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone"`
	Specialty *string `json:"specialty"`
}

type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Specialty *string `json:"specialty"`
	Role      *string `json:"role" validate:"omitempty,oneof=patient doctor admin"`
	Enable    *int    `json:"enable"` // 1 = enabled, 0 = disabled
}
