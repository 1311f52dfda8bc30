// Package realtime keeps an in-memory cache of a collection fresh via a
// change-stream subscription, with a throttled one-shot fetch as the
// fallback path and idle gating driven by activity signals.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mms/internal/application/activity"
)

// State is the lifecycle phase of one collection's live query.
type State string

const (
	// StateStopped means no subscription is open and none is wanted.
	StateStopped State = "stopped"
	// StateLive means a subscription is open and the cache tracks the store.
	StateLive State = "live"
	// StateIdle means the subscription was suspended by a disconnect signal
	// and will reopen on reconnect.
	StateIdle State = "idle"
)

// DefaultFetchCooldown is the minimum interval between non-forced fetches.
const DefaultFetchCooldown = 2 * time.Minute

// Source is the slice of a store a Manager needs: a snapshot query and a
// change subscription.
type Source[T any] interface {
	List(ctx context.Context) ([]T, error)
	Subscribe(ctx context.Context, onSnapshot func([]T), onError func(error)) (func(), error)
}

// Manager owns the cached snapshot of one collection.
//
// INVARIANT: at most one subscription is open per Manager at any time
// INVARIANT: a snapshot replaces the cache wholesale, never merges into it
type Manager[T any] struct {
	name     string
	source   Source[T]
	cooldown time.Duration

	mu        sync.Mutex
	state     State
	stop      func()
	items     []T
	lastSync  time.Time
	lastFetch time.Time
	err       error
}

// NewManager creates a stopped Manager for the named collection.
// A cooldown of zero falls back to DefaultFetchCooldown.
func NewManager[T any](name string, source Source[T], cooldown time.Duration) *Manager[T] {
	if cooldown <= 0 {
		cooldown = DefaultFetchCooldown
	}
	return &Manager[T]{
		name:     name,
		source:   source,
		cooldown: cooldown,
		state:    StateStopped,
	}
}

// Start opens the change subscription.
// POST: state is StateLive on success; a duplicate Start is a no-op
// POST: on failure the error lands in the error slot and state is unchanged
func (m *Manager[T]) Start(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateLive {
		m.mu.Unlock()
		slog.Debug("realtime_start_skipped", "collection", m.name)
		return
	}
	m.mu.Unlock()

	stop, err := m.source.Subscribe(ctx, m.applySnapshot, m.recordError)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = err
		slog.Error("realtime_subscribe_failed", "collection", m.name, "error", err)
		return
	}
	// Lost a race with a concurrent Start; keep the first subscription.
	if m.state == StateLive {
		go stop()
		return
	}
	m.stop = stop
	m.state = StateLive
	m.err = nil
	slog.Info("realtime_started", "collection", m.name)
}

// Stop closes the subscription and marks the Manager StateStopped.
// The cached snapshot is kept and keeps serving reads.
func (m *Manager[T]) Stop() {
	m.suspend(StateStopped)
}

// suspend tears down the subscription, leaving state as next.
func (m *Manager[T]) suspend(next State) {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if prev == StateLive {
		slog.Info("realtime_stopped", "collection", m.name, "state", next)
	}
}

// Fetch refreshes the cache with a one-shot query.
// POST: a non-forced Fetch inside the cooldown window returns immediately
// and the cached snapshot keeps serving
func (m *Manager[T]) Fetch(ctx context.Context, force bool) error {
	m.mu.Lock()
	if !force && !m.lastFetch.IsZero() && time.Since(m.lastFetch) < m.cooldown {
		m.mu.Unlock()
		slog.Debug("realtime_fetch_throttled", "collection", m.name)
		return nil
	}
	m.lastFetch = time.Now()
	m.mu.Unlock()

	items, err := m.source.List(ctx)
	if err != nil {
		m.recordError(err)
		return err
	}
	m.applySnapshot(items)
	return nil
}

// applySnapshot installs a fresh snapshot and clears the error slot.
func (m *Manager[T]) applySnapshot(items []T) {
	m.mu.Lock()
	m.items = items
	m.lastSync = time.Now()
	m.err = nil
	m.mu.Unlock()
}

// recordError fills the error slot without tearing anything down.
func (m *Manager[T]) recordError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	slog.Error("realtime_error", "collection", m.name, "error", err)
}

// Items returns the cached snapshot.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items
}

// State returns the current lifecycle phase.
func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastSync returns when the cache last absorbed a snapshot.
func (m *Manager[T]) LastSync() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync
}

// Err returns the error slot, nil when healthy.
func (m *Manager[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// BindActivity wires the Manager to activity signals: disconnect suspends
// the subscription into StateIdle, reconnect resumes it. A Manager the
// operator stopped by hand stays stopped across reconnects.
// Returns the unregister handle.
func (m *Manager[T]) BindActivity(ctx context.Context, reg *activity.Registry) func() {
	return reg.Register(func(sig activity.Signal) {
		switch sig {
		case activity.SignalDisconnect:
			m.mu.Lock()
			live := m.state == StateLive
			m.mu.Unlock()
			if live {
				m.suspend(StateIdle)
			}
		case activity.SignalReconnect:
			m.mu.Lock()
			idle := m.state == StateIdle
			m.mu.Unlock()
			if idle {
				m.Start(ctx)
			}
		}
	})
}
