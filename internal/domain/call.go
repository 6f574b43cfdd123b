package domain

import "time"

// CallType distinguishes audio-only calls from full video calls.
type CallType string

const (
	CallTypeVideo CallType = "video"
	CallTypeAudio CallType = "audio"
)

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool {
	return t == CallTypeVideo || t == CallTypeAudio
}

// CallStatus is the lifecycle state of a call notification row. Values are
// part of the wire format; keep them stable.
type CallStatus string

const (
	CallStatusPending  CallStatus = "pending"
	CallStatusAnswered CallStatus = "answered"
	CallStatusDeclined CallStatus = "declined"
	CallStatusEnded    CallStatus = "ended"
	CallStatusMissed   CallStatus = "missed"
)

// Valid reports whether s is a known call status.
func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusPending, CallStatusAnswered, CallStatusDeclined, CallStatusEnded, CallStatusMissed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change from s to next is allowed.
// pending may move to any other state; answered, declined and missed may only
// move to ended; ended is terminal. The store does not enforce this, so the
// gateway checks it before every status write.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	switch s {
	case CallStatusPending:
		return next != CallStatusPending && next.Valid()
	case CallStatusAnswered, CallStatusDeclined, CallStatusMissed:
		return next == CallStatusEnded
	default: // ended or unknown
		return false
	}
}

// CallNotification is the raw call-offer row as stored: one directed offer
// from SenderID to ReceiverID. CallID is the caller-generated token that
// correlates this row with the external video session, and is the key used
// for all status updates.
type CallNotification struct {
	NotificationID string     `json:"id" dynamodbav:"notification_id"`
	SenderID       string     `json:"sender_id" dynamodbav:"sender_id"`
	ReceiverID     string     `json:"receiver_id" dynamodbav:"receiver_id"`
	CallID         string     `json:"call_id" dynamodbav:"call_id"`
	CallType       CallType   `json:"call_type" dynamodbav:"call_type"`
	Status         CallStatus `json:"status" dynamodbav:"status"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Active reports whether the offer still represents a live or ringing call.
func (n *CallNotification) Active() bool {
	return n.Status == CallStatusPending || n.Status == CallStatusAnswered
}

// EnrichedCallNotification is a CallNotification plus the sender's display
// profile, looked up when the row is delivered or fetched. The profile is
// never persisted back to the store. Sender stays nil when the lookup fails;
// consumers fall back to a generic caller label.
type EnrichedCallNotification struct {
	CallNotification
	Sender *Profile `json:"sender,omitempty" dynamodbav:"-"`
}

// SendCallRequest is the payload for creating a new call offer.
type SendCallRequest struct {
	ReceiverID string   `json:"receiver_id" validate:"required"`
	CallID     string   `json:"call_id"` // generated when empty
	CallType   CallType `json:"call_type" validate:"omitempty,oneof=video audio"`
}

// UpdateCallStatusRequest is the payload for a status transition.
type UpdateCallStatusRequest struct {
	Status CallStatus `json:"status" validate:"required,oneof=pending answered declined ended missed"`
}
