package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mms/internal/application/activity"
)

// fakeSource implements Source[string] with controllable snapshots.
type fakeSource struct {
	mu         sync.Mutex
	items      []string
	listErr    error
	listCalls  int
	subscribes int
	stops      int
	onSnapshot func([]string)
	subErr     error
}

func (s *fakeSource) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func (s *fakeSource) Subscribe(_ context.Context, onSnapshot func([]string), _ func(error)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subErr != nil {
		return nil, s.subErr
	}
	s.subscribes++
	s.onSnapshot = onSnapshot
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stops++
	}, nil
}

func (s *fakeSource) push(items []string) {
	s.mu.Lock()
	fn := s.onSnapshot
	s.mu.Unlock()
	fn(items)
}

func (s *fakeSource) counts() (subscribes, stops, listCalls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes, s.stops, s.listCalls
}

// TestManagerStart_DuplicateIsNoOp verifies at most one subscription is open
// per manager.
func TestManagerStart_DuplicateIsNoOp(t *testing.T) {
	src := &fakeSource{}
	m := NewManager[string]("members", src, time.Minute)

	m.Start(context.Background())
	m.Start(context.Background())

	subs, _, _ := src.counts()
	if subs != 1 {
		t.Errorf("subscriptions=%d want 1", subs)
	}
	if m.State() != StateLive {
		t.Errorf("state=%s want live", m.State())
	}
}

// TestManagerSnapshot_ReplacesCache verifies snapshots replace the cache and
// stamp the sync time.
func TestManagerSnapshot_ReplacesCache(t *testing.T) {
	src := &fakeSource{}
	m := NewManager[string]("members", src, time.Minute)
	m.Start(context.Background())

	src.push([]string{"a", "b"})
	if got := m.Items(); len(got) != 2 {
		t.Fatalf("items=%v want 2", got)
	}
	if m.LastSync().IsZero() {
		t.Error("last sync should be stamped")
	}

	src.push([]string{"c"})
	if got := m.Items(); len(got) != 1 || got[0] != "c" {
		t.Errorf("items=%v want [c] after replacement", got)
	}
}

// TestManagerStop_ClosesSubscriptionKeepsCache verifies Stop tears down the
// subscription but the cached snapshot keeps serving.
func TestManagerStop_ClosesSubscriptionKeepsCache(t *testing.T) {
	src := &fakeSource{}
	m := NewManager[string]("members", src, time.Minute)
	m.Start(context.Background())
	src.push([]string{"a"})

	m.Stop()
	_, stops, _ := src.counts()
	if stops != 1 {
		t.Errorf("stops=%d want 1", stops)
	}
	if m.State() != StateStopped {
		t.Errorf("state=%s want stopped", m.State())
	}
	if got := m.Items(); len(got) != 1 {
		t.Errorf("items=%v want cached snapshot to survive", got)
	}
}

// TestManagerFetch_CooldownThrottles verifies a non-forced fetch inside the
// cooldown window is skipped while a forced one always runs.
func TestManagerFetch_CooldownThrottles(t *testing.T) {
	src := &fakeSource{items: []string{"a"}}
	m := NewManager[string]("members", src, time.Hour)

	if err := m.Fetch(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Fetch(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, lists := src.counts()
	if lists != 1 {
		t.Errorf("list calls=%d want 1 (second fetch throttled)", lists)
	}

	if err := m.Fetch(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, lists = src.counts()
	if lists != 2 {
		t.Errorf("list calls=%d want 2 (forced fetch runs)", lists)
	}
}

// TestManagerFetch_ErrorLandsInSlot verifies fetch failures populate the
// error slot and a later snapshot clears it.
func TestManagerFetch_ErrorLandsInSlot(t *testing.T) {
	src := &fakeSource{listErr: errors.New("store offline")}
	m := NewManager[string]("members", src, time.Hour)

	if err := m.Fetch(context.Background(), true); err == nil {
		t.Fatal("expected fetch error")
	}
	if m.Err() == nil {
		t.Error("error slot should be populated")
	}

	src.mu.Lock()
	src.listErr = nil
	src.items = []string{"a"}
	src.mu.Unlock()
	if err := m.Fetch(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Err() != nil {
		t.Error("error slot should clear on a successful snapshot")
	}
}

// TestManagerStart_FailurePopulatesErrorSlot verifies a failed subscribe
// leaves the manager stopped with the error recorded.
func TestManagerStart_FailurePopulatesErrorSlot(t *testing.T) {
	src := &fakeSource{subErr: errors.New("watch unsupported")}
	m := NewManager[string]("members", src, time.Minute)

	m.Start(context.Background())
	if m.State() != StateStopped {
		t.Errorf("state=%s want stopped", m.State())
	}
	if m.Err() == nil {
		t.Error("error slot should be populated")
	}
}

// TestManagerActivityGating verifies disconnect suspends into idle, reconnect
// resumes, and a hand-stopped manager stays stopped.
func TestManagerActivityGating(t *testing.T) {
	src := &fakeSource{}
	reg := activity.NewRegistry()
	m := NewManager[string]("members", src, time.Minute)
	defer m.BindActivity(context.Background(), reg)()

	m.Start(context.Background())
	reg.Broadcast(activity.SignalDisconnect)
	if m.State() != StateIdle {
		t.Fatalf("state=%s want idle after disconnect", m.State())
	}
	_, stops, _ := src.counts()
	if stops != 1 {
		t.Errorf("stops=%d want 1", stops)
	}

	reg.Broadcast(activity.SignalReconnect)
	if m.State() != StateLive {
		t.Fatalf("state=%s want live after reconnect", m.State())
	}
	subs, _, _ := src.counts()
	if subs != 2 {
		t.Errorf("subscriptions=%d want 2", subs)
	}

	// A manual stop is not resumed by reconnect.
	m.Stop()
	reg.Broadcast(activity.SignalReconnect)
	if m.State() != StateStopped {
		t.Errorf("state=%s want stopped after manual stop", m.State())
	}
}
