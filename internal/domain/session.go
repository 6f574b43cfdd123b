package domain

import "time"

// Session is one authenticated login bound to a device. The refresh token is
// opaque and rotated on every refresh.
type Session struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	ProfileID        string    `json:"profile_id" dynamodbav:"profile_id"`
	DeviceID         string    `json:"device_id" dynamodbav:"device_id"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"-" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
	Profile          *Profile  `json:"profile,omitempty" dynamodbav:"-"`
}
