package presence

import (
	"fmt"
	"testing"
)

type fakeConn struct {
	id     string
	events []Event
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) count(eventType string) int {
	n := 0
	for _, ev := range c.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestRegister_OnlineTransitionOnlyOnFirstConnection(t *testing.T) {
	r := NewRegistry()

	if !r.Register("u1", &fakeConn{id: "c1"}, "Alice", "user") {
		t.Fatalf("first connection must report offline->online transition")
	}
	if r.Register("u1", &fakeConn{id: "c2"}, "Alice", "user") {
		t.Fatalf("second device must not report a transition")
	}
	if !r.IsOnline("u1") {
		t.Fatalf("u1 must be online with live connections")
	}
}

func TestUnregister_LastConnectionRecordsLastSeen(t *testing.T) {
	r := NewRegistry()
	const n = 3
	for i := 0; i < n; i++ {
		r.Register("u1", &fakeConn{id: fmt.Sprintf("c%d", i)}, "Alice", "user")
	}

	offlineCount := 0
	for i := 0; i < n; i++ {
		wentOffline, lastSeen := r.Unregister("u1", fmt.Sprintf("c%d", i))
		if wentOffline {
			offlineCount++
			if lastSeen.IsZero() {
				t.Fatalf("offline transition must carry lastSeen")
			}
		}
	}
	if offlineCount != 1 {
		t.Fatalf("expected exactly 1 offline transition, got %d", offlineCount)
	}
	if r.IsOnline("u1") {
		t.Fatalf("u1 must be offline after all connections closed")
	}

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].UserID != "u1" {
		t.Fatalf("meta entry must survive going offline: %+v", snap)
	}
	if snap[0].LastSeen == nil {
		t.Fatalf("offline user must have non-nil LastSeen")
	}
}

func TestRegister_ReconnectClearsLastSeen(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", &fakeConn{id: "c1"}, "Alice", "user")
	r.Unregister("u1", "c1")

	r.Register("u1", &fakeConn{id: "c2"}, "Alice", "user")

	snap := r.Snapshot()
	if snap[0].LastSeen != nil {
		t.Fatalf("online user must have nil LastSeen, got %v", snap[0].LastSeen)
	}
}

func TestUnregister_UnknownUserIsNoop(t *testing.T) {
	r := NewRegistry()

	wentOffline, _ := r.Unregister("ghost", "c1")
	if wentOffline {
		t.Fatalf("unknown user must not report a transition")
	}
}

func TestSnapshot_SortedAndMixed(t *testing.T) {
	r := NewRegistry()
	r.Register("u2", &fakeConn{id: "c2"}, "Bob", "client")
	r.Register("u1", &fakeConn{id: "c1"}, "Alice", "worker")
	r.Unregister("u2", "c2")

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].UserID != "u1" || snap[1].UserID != "u2" {
		t.Fatalf("snapshot must be sorted by userID: %+v", snap)
	}
	if snap[0].LastSeen != nil {
		t.Fatalf("online u1 must have nil LastSeen")
	}
	if snap[1].LastSeen == nil {
		t.Fatalf("offline u2 must have recorded LastSeen")
	}
	if snap[0].DisplayName != "Alice" || snap[0].Role != "worker" {
		t.Fatalf("meta mismatch: %+v", snap[0])
	}
}

func TestUpdateMeta_DoesNotChangeOnlineState(t *testing.T) {
	r := NewRegistry()

	r.UpdateMeta("u1", "Alice", "worker")
	if r.IsOnline("u1") {
		t.Fatalf("meta update must not mark a user online")
	}

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].DisplayName != "Alice" {
		t.Fatalf("meta update must lazily create the entry: %+v", snap)
	}
}

func TestToUser_AtMostOncePerConnection(t *testing.T) {
	r := NewRegistry()
	conns := []*fakeConn{{id: "c1"}, {id: "c2"}, {id: "c3"}}
	for _, c := range conns {
		r.Register("u1", c, "Alice", "user")
	}

	r.ToUser("u1", Event{Type: EventNewMessage})

	for _, c := range conns {
		if got := c.count(EventNewMessage); got != 1 {
			t.Fatalf("conn %s: expected 1 delivery, got %d", c.id, got)
		}
	}
}

func TestToOthers_SkipsOriginConnection(t *testing.T) {
	r := NewRegistry()
	origin := &fakeConn{id: "c1"}
	other := &fakeConn{id: "c2"}
	r.Register("u1", origin, "Alice", "user")
	r.Register("u1", other, "Alice", "user")

	r.ToOthers("u1", "c1", Event{Type: EventNewMessage})

	if got := origin.count(EventNewMessage); got != 0 {
		t.Fatalf("origin must be skipped, got %d deliveries", got)
	}
	if got := other.count(EventNewMessage); got != 1 {
		t.Fatalf("other device: expected 1 delivery, got %d", got)
	}
}

func TestToAll_ReachesEveryConnection(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{id: "c1"}
	b := &fakeConn{id: "c2"}
	r.Register("u1", a, "Alice", "user")
	r.Register("u2", b, "Bob", "user")

	r.ToAll(Event{Type: EventUserStatus})

	if a.count(EventUserStatus) != 1 || b.count(EventUserStatus) != 1 {
		t.Fatalf("broadcast must reach every connection once")
	}
}
