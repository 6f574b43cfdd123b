package call

import (
	"context"
	"time"
)

// Janitor periodically deletes call-notification rows older than the
// retention window. Deletion is best-effort maintenance; a failed pass is
// logged by the gateway and retried on the next tick.
type Janitor struct {
	gateway   Gateway
	retention time.Duration
	interval  time.Duration
}

func NewJanitor(gw Gateway, retention, interval time.Duration) *Janitor {
	return &Janitor{gateway: gw, retention: retention, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (j *Janitor) Run(ctx context.Context) {
	j.gateway.Cleanup(ctx, j.retention)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.gateway.Cleanup(ctx, j.retention)
		}
	}
}
