package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telecare-api/internal/domain"
)

// Service notifies receivers who have no live connection when a call comes
// in. Both channels are best-effort: an unreachable SMS or SMTP backend must
// never affect the call itself.
type Service interface {
	NotifyOffline(ctx context.Context, n domain.EnrichedCallNotification)
}

// DeliveryResult reports the per-channel outcome of one offline alert.
type DeliveryResult struct {
	SMSErr   error
	EmailErr error
}

type profileStore interface {
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type emailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	profiles profileStore
	sms      smsSender
	email    emailSender
}

type ServiceDeps struct {
	ProfileRepo profileStore
	SMS         smsSender // nil disables the SMS channel
	Email       emailSender
}

func NewService(deps ServiceDeps) Service {
	return &service{profiles: deps.ProfileRepo, sms: deps.SMS, email: deps.Email}
}

func (s *service) NotifyOffline(ctx context.Context, n domain.EnrichedCallNotification) {
	res := s.deliver(ctx, n)
	if res.SMSErr != nil {
		slog.Warn("offline call alert via sms failed",
			"receiver_id", n.ReceiverID, "call_id", n.CallID, "err", res.SMSErr)
	}
	if res.EmailErr != nil {
		slog.Warn("offline call alert via email failed",
			"receiver_id", n.ReceiverID, "call_id", n.CallID, "err", res.EmailErr)
	}
}

func (s *service) deliver(ctx context.Context, n domain.EnrichedCallNotification) DeliveryResult {
	receiver, err := s.profiles.Get(ctx, n.ReceiverID)
	if err != nil {
		return DeliveryResult{SMSErr: err, EmailErr: err}
	}

	caller := n.Sender.DisplayName()
	message := fmt.Sprintf("%s tried to reach you with a %s call. Open the app to call back.", caller, n.CallType)

	var res DeliveryResult
	if s.sms != nil && receiver.Phone != nil && *receiver.Phone != "" {
		res.SMSErr = s.sms.SendSMS(ctx, *receiver.Phone, message)
	}
	if s.email != nil && receiver.Email != "" {
		subject := fmt.Sprintf("Missed %s call from %s", n.CallType, caller)
		res.EmailErr = s.email.SendEmail(receiver.Email, subject, message)
	}
	return res
}
