package activity

import "testing"

// TestRegistryBroadcast verifies every registered listener receives each
// signal.
func TestRegistryBroadcast(t *testing.T) {
	reg := NewRegistry()
	var got []Signal
	reg.Register(func(s Signal) { got = append(got, s) })
	reg.Register(func(s Signal) { got = append(got, s) })

	reg.Broadcast(SignalDisconnect)
	if len(got) != 2 {
		t.Fatalf("deliveries=%d want 2", len(got))
	}
	for _, s := range got {
		if s != SignalDisconnect {
			t.Errorf("signal=%s want disconnect", s)
		}
	}
}

// TestRegistryUnregister verifies the handle removes exactly its listener
// and is safe to call twice.
func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	a, b := 0, 0
	stopA := reg.Register(func(Signal) { a++ })
	reg.Register(func(Signal) { b++ })

	stopA()
	stopA()
	reg.Broadcast(SignalReconnect)

	if a != 0 {
		t.Errorf("unregistered listener fired %d times", a)
	}
	if b != 1 {
		t.Errorf("remaining listener deliveries=%d want 1", b)
	}
}
