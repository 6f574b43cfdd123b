// Package call implements the call-coordination core: the notification
// gateway over the durable store, the per-user incoming-call coordinator and
// the in-call session state machine.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/telecare-api/internal/domain"
	"github.com/telecare-api/internal/pkg/id"
	"github.com/telecare-api/internal/pkg/validate"
)

// Handler receives enriched call notifications for one subscriber.
type Handler func(domain.EnrichedCallNotification)

// OfflineSink is notified when a call offer targets a receiver with no live
// subscription, so an out-of-band alert (SMS, email) can be attempted.
type OfflineSink interface {
	NotifyOffline(ctx context.Context, n domain.EnrichedCallNotification)
}

// Gateway is the single point of truth for call-offer rows and their status.
type Gateway interface {
	// Send validates both participants, inserts a pending offer and delivers
	// it to the receiver's subscription. The returned notification is
	// enriched with the sender profile.
	Send(ctx context.Context, senderID string, req domain.SendCallRequest) (*domain.EnrichedCallNotification, error)
	// UpdateStatus transitions the row identified by callID. Returns
	// (nil, nil) when no row matches: status updates race with cleanup and
	// already-ended calls, so a miss is logged, not escalated.
	UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallNotification, error)
	// Subscribe registers fn for offers addressed to receiverID. At most one
	// subscription exists per receiver; subscribing again tears down the
	// previous one and returns only once its callback can no longer fire.
	// The returned cancel releases this subscription and is a no-op once a
	// newer one has replaced it, so a stale connection tearing down late
	// cannot sever the live subscription.
	Subscribe(receiverID string, fn Handler) (cancel func())
	UnsubscribeAll()
	// ListActive returns all pending offers for receiverID, enriched; used
	// for reconciliation after a reconnect.
	ListActive(ctx context.Context, receiverID string) ([]domain.EnrichedCallNotification, error)
	// Cleanup deletes rows older than the retention window. Best-effort:
	// failures are logged and swallowed, the deleted count is returned.
	Cleanup(ctx context.Context, olderThan time.Duration) int
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.CallNotification) error
	GetByCallID(ctx context.Context, callID string) (*domain.CallNotification, error)
	UpdateStatus(ctx context.Context, notificationID string, from, to domain.CallStatus) error
	ListPendingByReceiver(ctx context.Context, receiverID string) ([]domain.CallNotification, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type profileStore interface {
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
}

// GatewayDeps bundles the gateway's collaborators. Offline may be nil when
// no out-of-band alert channel is configured.
type GatewayDeps struct {
	Notifications notificationStore
	Profiles      profileStore
	Offline       OfflineSink
}

type gateway struct {
	notifications notificationStore
	profiles      profileStore
	offline       OfflineSink

	mu   sync.Mutex
	subs map[string]*subscription
}

// subscription pushes notifications to one receiver callback through a
// buffered channel so a slow handler never blocks Send. stop closes done,
// which halts the pump; stopped is closed when the pump has exited, at
// which point the callback can never fire again.
type subscription struct {
	ch      chan domain.EnrichedCallNotification
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (s *subscription) stop() { s.once.Do(func() { close(s.done) }) }

const subscriptionBuffer = 16

func NewGateway(deps GatewayDeps) Gateway {
	return &gateway{
		notifications: deps.Notifications,
		profiles:      deps.Profiles,
		offline:       deps.Offline,
		subs:          make(map[string]*subscription),
	}
}

func (g *gateway) Send(ctx context.Context, senderID string, req domain.SendCallRequest) (*domain.EnrichedCallNotification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if req.CallType == "" {
		req.CallType = domain.CallTypeVideo
	}
	if req.CallID == "" {
		req.CallID = uuid.NewString()
	}

	// Fail fast with a clear error instead of a generic insert failure. A
	// transient sender lookup error is not fatal: the offer goes out
	// un-enriched and the receiver falls back to a generic caller label.
	sender, err := g.profiles.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("sender profile %s: %w", senderID, domain.ErrNotFound)
		}
		slog.Warn("sender enrichment failed", "sender_id", senderID, "err", err)
		sender = nil
	}
	if _, err := g.profiles.Get(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("receiver profile %s: %w", req.ReceiverID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("receiver profile lookup: %w", err)
	}

	now := time.Now().UTC()
	row := domain.CallNotification{
		NotificationID: id.New(),
		SenderID:       senderID,
		ReceiverID:     req.ReceiverID,
		CallID:         req.CallID,
		CallType:       req.CallType,
		Status:         domain.CallStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.notifications.Put(ctx, &row); err != nil {
		return nil, fmt.Errorf("insert call notification: %w", err)
	}

	enriched := domain.EnrichedCallNotification{CallNotification: row, Sender: sender}
	g.deliver(enriched)
	return &enriched, nil
}

// deliver pushes the offer to the receiver's subscription, or hands it to
// the offline sink when nobody is listening.
func (g *gateway) deliver(n domain.EnrichedCallNotification) {
	g.mu.Lock()
	sub := g.subs[n.ReceiverID]
	g.mu.Unlock()

	if sub == nil {
		if g.offline != nil {
			go g.offline.NotifyOffline(context.Background(), n)
		}
		return
	}
	select {
	case sub.ch <- n:
	default:
		slog.Warn("subscriber queue full, dropping call notification",
			"receiver_id", n.ReceiverID, "call_id", n.CallID)
	}
}

func (g *gateway) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallNotification, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown call status %q: %w", status, domain.ErrBadRequest)
	}
	row, err := g.notifications.GetByCallID(ctx, callID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("status update for unknown call", "call_id", callID, "status", status)
			return nil, nil
		}
		return nil, err
	}
	if !row.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("call %s: %s -> %s: %w", callID, row.Status, status, domain.ErrConflict)
	}
	if err := g.notifications.UpdateStatus(ctx, row.NotificationID, row.Status, status); err != nil {
		return nil, err
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	return row, nil
}

func (g *gateway) Subscribe(receiverID string, fn Handler) func() {
	sub := &subscription{
		ch:      make(chan domain.EnrichedCallNotification, subscriptionBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	g.mu.Lock()
	prev := g.subs[receiverID]
	g.subs[receiverID] = sub
	g.mu.Unlock()

	if prev != nil {
		prev.stop()
		// The replaced pump may be mid-callback or hold a buffered
		// delivery. Wait it out so the old callback never fires after
		// this call returns.
		<-prev.stopped
	}

	go func() {
		defer close(sub.stopped)
		for {
			select {
			case <-sub.done:
				return
			case n := <-sub.ch:
				// A wakeup can race stop when both channels are ready.
				// Re-check before invoking so a replaced callback never
				// sees a queued delivery.
				select {
				case <-sub.done:
					return
				default:
				}
				fn(n)
			}
		}
	}()

	return func() {
		g.mu.Lock()
		if g.subs[receiverID] == sub {
			delete(g.subs, receiverID)
		}
		g.mu.Unlock()
		sub.stop()
	}
}

func (g *gateway) UnsubscribeAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for receiverID, sub := range g.subs {
		sub.stop()
		delete(g.subs, receiverID)
	}
}

func (g *gateway) ListActive(ctx context.Context, receiverID string) ([]domain.EnrichedCallNotification, error) {
	rows, err := g.notifications.ListPendingByReceiver(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	enriched := make([]domain.EnrichedCallNotification, 0, len(rows))
	for _, row := range rows {
		enriched = append(enriched, g.enrich(ctx, row))
	}
	return enriched, nil
}

func (g *gateway) Cleanup(ctx context.Context, olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)
	deleted, err := g.notifications.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		// Non-critical maintenance; never escalate.
		slog.Warn("call notification cleanup failed", "err", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("cleaned up stale call notifications", "deleted", deleted)
	}
	return deleted
}

// enrich is a total function from a raw row to its enriched form. A failed
// profile lookup leaves Sender nil; the caller display falls back to a
// generic label.
func (g *gateway) enrich(ctx context.Context, row domain.CallNotification) domain.EnrichedCallNotification {
	sender, err := g.profiles.Get(ctx, row.SenderID)
	if err != nil {
		slog.Warn("sender enrichment failed", "sender_id", row.SenderID, "call_id", row.CallID, "err", err)
		return domain.EnrichedCallNotification{CallNotification: row}
	}
	return domain.EnrichedCallNotification{CallNotification: row, Sender: sender}
}
