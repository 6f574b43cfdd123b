package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/telecare-api/internal/domain"
)

// CoordinatorState is the phase of the incoming-call coordinator. The guarded
// transitions make "drop a second offer" and "ignore a late accept after
// reject" structural rather than convention-based.
type CoordinatorState int

const (
	// CoordinatorIdle: no offer is being presented.
	CoordinatorIdle CoordinatorState = iota
	// CoordinatorOffered: an offer is visible and awaiting accept/reject.
	CoordinatorOffered
	// CoordinatorProcessing: accept/reject is in flight; new offers and
	// duplicate answers are dropped.
	CoordinatorProcessing
)

func (s CoordinatorState) String() string {
	switch s {
	case CoordinatorIdle:
		return "idle"
	case CoordinatorOffered:
		return "offered"
	case CoordinatorProcessing:
		return "processing"
	}
	return "unknown"
}

// Navigation destinations for the post-accept hand-off. The counterpart's
// role decides which chat context hosts the call screen.
const (
	RouteDoctorChat  = "doctor-chat"
	RoutePatientChat = "patient-chat"
)

// Handoff is what the navigation layer needs to enter the call screen.
type Handoff struct {
	CounterpartID string
	Counterpart   *domain.Profile // nil when enrichment failed
	CallID        string
	CallType      domain.CallType
	Incoming      bool
	Route         string
}

// AcceptResult reports an accept. StatusErr carries the best-effort status
// write outcome: a failure is recorded here and logged but does not block
// the hand-off, since the in-call experience no longer depends on the row
// once the receiver committed.
type AcceptResult struct {
	Handoff   Handoff
	StatusErr error
}

// RejectResult reports a reject; StatusErr as in AcceptResult.
type RejectResult struct {
	StatusErr error
}

// Coordinator is the per-user single source of truth for "is an incoming
// call currently being offered", independent of which screen is on top.
// Created at session start, stopped at session end.
type Coordinator struct {
	userID  string
	gateway Gateway
	onOffer Handler // invoked when an offer becomes visible; may be nil

	mu        sync.Mutex
	state     CoordinatorState
	incoming  *domain.EnrichedCallNotification
	cancelSub func()
}

// NewCoordinator builds the coordinator for one user. onOffer is called
// once per offer that becomes visible; suppressed concurrent offers never
// reach it. Pass nil when the caller polls Current instead.
func NewCoordinator(userID string, gw Gateway, onOffer Handler) *Coordinator {
	return &Coordinator{userID: userID, gateway: gw, onOffer: onOffer, state: CoordinatorIdle}
}

// Start subscribes the coordinator to the gateway's realtime feed.
func (c *Coordinator) Start() {
	cancel := c.gateway.Subscribe(c.userID, c.deliver)
	c.mu.Lock()
	c.cancelSub = cancel
	c.mu.Unlock()
}

// Stop releases the subscription and clears any visible offer.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancelSub
	c.cancelSub = nil
	c.state = CoordinatorIdle
	c.incoming = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reconcile replays offers that were stored while the user had no live
// subscription. The usual single-offer guard applies, so at most the first
// pending offer becomes visible.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	pending, err := c.gateway.ListActive(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("reconcile pending offers: %w", err)
	}
	for _, n := range pending {
		c.deliver(n)
	}
	return nil
}

// deliver surfaces a new offer, or drops it when one is already visible or
// being answered. At most one concurrent offer is presented per user; a
// second simultaneous caller is ignored at this layer.
func (c *Coordinator) deliver(n domain.EnrichedCallNotification) {
	c.mu.Lock()
	if c.state != CoordinatorIdle {
		state := c.state
		c.mu.Unlock()
		slog.Warn("dropping concurrent call offer",
			"user_id", c.userID, "call_id", n.CallID, "state", state.String())
		return
	}
	c.state = CoordinatorOffered
	c.incoming = &n
	surface := c.onOffer
	c.mu.Unlock()

	if surface != nil {
		surface(n)
	}
}

// Current returns the offer being presented, if any.
func (c *Coordinator) Current() (*domain.EnrichedCallNotification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CoordinatorOffered {
		return nil, false
	}
	return c.incoming, true
}

// Accept answers the visible offer. The status write is best-effort: its
// failure is reported in the result and logged, but navigation proceeds and
// the offer is cleared regardless.
func (c *Coordinator) Accept(ctx context.Context) (AcceptResult, error) {
	n, err := c.begin()
	if err != nil {
		return AcceptResult{}, err
	}

	_, statusErr := c.gateway.UpdateStatus(ctx, n.CallID, domain.CallStatusAnswered)
	if statusErr != nil {
		slog.Warn("best-effort answer status write failed", "call_id", n.CallID, "err", statusErr)
	}

	c.finish()
	return AcceptResult{Handoff: handoffFor(n), StatusErr: statusErr}, nil
}

// Reject declines the visible offer; offer state clears whether or not the
// status write succeeds.
func (c *Coordinator) Reject(ctx context.Context) (RejectResult, error) {
	n, err := c.begin()
	if err != nil {
		return RejectResult{}, err
	}

	_, statusErr := c.gateway.UpdateStatus(ctx, n.CallID, domain.CallStatusDeclined)
	if statusErr != nil {
		slog.Warn("best-effort decline status write failed", "call_id", n.CallID, "err", statusErr)
	}

	c.finish()
	return RejectResult{StatusErr: statusErr}, nil
}

// EndCall marks a call ended, best-effort; callers log and move on.
func (c *Coordinator) EndCall(ctx context.Context, callID string) error {
	_, err := c.gateway.UpdateStatus(ctx, callID, domain.CallStatusEnded)
	if err != nil {
		slog.Warn("best-effort end status write failed", "call_id", callID, "err", err)
	}
	return err
}

// begin moves offered -> processing and hands back the offer being answered.
func (c *Coordinator) begin() (domain.EnrichedCallNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CoordinatorOffered || c.incoming == nil {
		return domain.EnrichedCallNotification{}, fmt.Errorf("no call offer to answer: %w", domain.ErrConflict)
	}
	c.state = CoordinatorProcessing
	return *c.incoming, nil
}

// finish clears the processed offer and returns to idle.
func (c *Coordinator) finish() {
	c.mu.Lock()
	c.state = CoordinatorIdle
	c.incoming = nil
	c.mu.Unlock()
}

func handoffFor(n domain.EnrichedCallNotification) Handoff {
	route := RoutePatientChat
	if n.Sender != nil && n.Sender.Role == domain.RoleDoctor {
		route = RouteDoctorChat
	}
	return Handoff{
		CounterpartID: n.SenderID,
		Counterpart:   n.Sender,
		CallID:        n.CallID,
		CallType:      n.CallType,
		Incoming:      true,
		Route:         route,
	}
}
