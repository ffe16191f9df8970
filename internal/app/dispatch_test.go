package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/parleychat/parley/internal/core"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("transport write failed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

type stubResolver struct {
	mu    sync.Mutex
	conns map[core.HandleID]core.Conn
}

func newStubResolver() *stubResolver {
	return &stubResolver{conns: make(map[core.HandleID]core.Conn)}
}

func (r *stubResolver) add(h core.HandleID, c core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[h] = c
}

func (r *stubResolver) Conn(h core.HandleID) (core.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[h]
	return c, ok
}

func TestSendToRoomExcludesHandles(t *testing.T) {
	members := NewMembership()
	resolver := newStubResolver()
	d := NewDispatcher(members, resolver)

	a, b := &fakeConn{}, &fakeConn{}
	resolver.add("ha", a)
	resolver.add("hb", b)
	members.Join("ha", "general")
	members.Join("hb", "general")

	res := d.SendToRoom("general", core.NewTypingChanged("general", "alice", true), "ha")
	if res.SentTo != 1 {
		t.Fatalf("sent to %d, want 1", res.SentTo)
	}
	if len(a.received()) != 0 {
		t.Fatal("excluded handle must not receive the event")
	}
	if len(b.received()) != 1 {
		t.Fatal("other member should receive exactly one frame")
	}
}

func TestSendToRoomBestEffortOnFailure(t *testing.T) {
	members := NewMembership()
	resolver := newStubResolver()
	d := NewDispatcher(members, resolver)

	bad := &fakeConn{fail: true}
	good := &fakeConn{}
	resolver.add("hbad", bad)
	resolver.add("hgood", good)
	members.Join("hbad", "general")
	members.Join("hgood", "general")

	res := d.SendToRoom("general", core.NewTypingChanged("general", "alice", true))
	if res.SentTo != 1 {
		t.Fatalf("sent to %d, want 1", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "hbad" {
		t.Fatalf("dropped %v, want [hbad]", res.Dropped)
	}
	if len(good.received()) != 1 {
		t.Fatal("failure on one recipient must not affect the others")
	}
}

func TestSendToRoomSkipsUnresolvedHandles(t *testing.T) {
	members := NewMembership()
	resolver := newStubResolver()
	d := NewDispatcher(members, resolver)

	// Handle in the index but no longer resolvable: a disconnect raced
	// the broadcast. Must be skipped, not treated as a failure.
	members.Join("hgone", "general")

	res := d.SendToRoom("general", core.NewTypingChanged("general", "alice", true))
	if res.SentTo != 0 || len(res.Dropped) != 0 {
		t.Fatalf("got (%d sent, %d dropped), want (0, 0)", res.SentTo, len(res.Dropped))
	}
}

// A single sender's dispatches arrive at each recipient in issue order.
func TestSendToRoomPerRoomFIFO(t *testing.T) {
	members := NewMembership()
	resolver := newStubResolver()
	d := NewDispatcher(members, resolver)

	recv := &fakeConn{}
	resolver.add("hb", recv)
	members.Join("hb", "general")

	const n = 50
	for i := 0; i < n; i++ {
		d.SendToRoom("general", core.NewTypingChanged("general", "alice", i%2 == 0))
	}

	frames := recv.received()
	if len(frames) != n {
		t.Fatalf("got %d frames, want %d", len(frames), n)
	}
	for i, f := range frames {
		var got core.TypingChanged
		if err := json.Unmarshal(f, &got); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got.IsTyping != (i%2 == 0) {
			t.Fatalf("frame %d out of order", i)
		}
	}
}
