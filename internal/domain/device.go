package domain

import "time"

// Device is one installed app instance. The UUID is client-generated and
// stable across logins; the row is created lazily on first login.
type Device struct {
	DeviceID  string    `json:"id" dynamodbav:"device_id"`
	UUID      string    `json:"uuid" dynamodbav:"device_uuid"`
	ProfileID string    `json:"profile_id" dynamodbav:"profile_id"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
