package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleDelay is how long without a Touch before the watchdog
// broadcasts a disconnect.
const DefaultIdleDelay = 10 * time.Minute

// Watchdog turns request activity into connect/disconnect signals.
// Touch marks the operator active; after delay with no touches the watchdog
// broadcasts SignalDisconnect, and the next Touch broadcasts SignalReconnect.
type Watchdog struct {
	registry *Registry
	delay    time.Duration

	mu   sync.Mutex
	last time.Time
	idle bool
}

// NewWatchdog creates a Watchdog broadcasting into registry.
// A delay of zero falls back to DefaultIdleDelay.
func NewWatchdog(registry *Registry, delay time.Duration) *Watchdog {
	if delay <= 0 {
		delay = DefaultIdleDelay
	}
	return &Watchdog{registry: registry, delay: delay, last: time.Now()}
}

// Touch records activity.
// POST: if the watchdog had gone idle, SignalReconnect is broadcast
func (wd *Watchdog) Touch() {
	wd.mu.Lock()
	wd.last = time.Now()
	wasIdle := wd.idle
	wd.idle = false
	wd.mu.Unlock()

	if wasIdle {
		slog.Info("activity_reconnect")
		wd.registry.Broadcast(SignalReconnect)
	}
}

// Run checks for idleness until ctx is cancelled.
// INVARIANT: exactly one disconnect is broadcast per idle period
func (wd *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(wd.delay / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wd.mu.Lock()
			fire := !wd.idle && time.Since(wd.last) >= wd.delay
			if fire {
				wd.idle = true
			}
			wd.mu.Unlock()
			if fire {
				slog.Info("activity_disconnect", "idle_for", wd.delay)
				wd.registry.Broadcast(SignalDisconnect)
			}
		}
	}
}
