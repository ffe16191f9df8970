package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

// ConnResolver maps a handle to its live transport. The registry is the
// production implementation; tests substitute their own.
type ConnResolver interface {
	Conn(core.HandleID) (core.Conn, bool)
}

// Dispatcher fans one event out to a room's current members. It holds no
// membership state of its own: recipients are resolved from the index at
// call time. Delivery is best-effort per connection, never retried here.
type Dispatcher struct {
	members *Membership
	conns   ConnResolver

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
}

func NewDispatcher(members *Membership, conns ConnResolver) *Dispatcher {
	return &Dispatcher{
		members:   members,
		conns:     conns,
		roomLocks: make(map[domain.RoomID]*sync.Mutex),
	}
}

func (d *Dispatcher) roomLock(room domain.RoomID) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.roomLocks[room]
	if !ok {
		l = &sync.Mutex{}
		d.roomLocks[room] = l
	}
	return l
}

// SendToRoom delivers the event to every member of the room except the
// excluded handles. Concurrent calls for the same room are serialized so
// each recipient sees per-room FIFO; a failed write to one recipient is
// logged and does not affect the others.
func (d *Dispatcher) SendToRoom(room domain.RoomID, ev core.Event, exclude ...core.HandleID) core.DeliveryResult {
	res := core.DeliveryResult{}

	frame, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Str("room", string(room)).Msg("event encode failed")
		return res
	}

	l := d.roomLock(room)
	l.Lock()
	defer l.Unlock()

	for _, handle := range d.members.MembersOf(room) {
		if excluded(handle, exclude) {
			continue
		}
		conn, ok := d.conns.Conn(handle)
		if !ok {
			// Handle unregistered between snapshot and write; skip.
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.dispatch").Str("room", string(room)).Str("handle", string(handle)).Msg("delivery failed")
			res.Dropped = append(res.Dropped, handle)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.dispatch").Str("room", string(room)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendToHandle delivers an event to a single connection, best-effort.
func (d *Dispatcher) SendToHandle(handle core.HandleID, ev core.Event) error {
	frame, err := ev.Encode()
	if err != nil {
		return err
	}
	conn, ok := d.conns.Conn(handle)
	if !ok {
		return nil
	}
	return conn.TrySend(frame)
}

func excluded(h core.HandleID, exclude []core.HandleID) bool {
	for _, e := range exclude {
		if h == e {
			return true
		}
	}
	return false
}
