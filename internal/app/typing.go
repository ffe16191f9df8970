package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

type typingKey struct {
	room domain.RoomID
	user domain.UserID
}

// TypingTracker holds transient (room, user) typing state. A "typing"
// signal arms an expiry timer; a refresh re-arms it; expiry broadcasts
// typingChanged(false) unilaterally, so clients never need to send an
// explicit stop.
type TypingTracker struct {
	ttl      time.Duration
	dispatch *Dispatcher

	mu     sync.Mutex
	timers map[typingKey]*time.Timer
}

func NewTypingTracker(ttl time.Duration, dispatch *Dispatcher) *TypingTracker {
	return &TypingTracker{
		ttl:      ttl,
		dispatch: dispatch,
		timers:   make(map[typingKey]*time.Timer),
	}
}

// Set records the signal and broadcasts only on an actual state change.
// The originating handle is excluded from the broadcast.
func (t *TypingTracker) Set(room domain.RoomID, user domain.UserID, typing bool, origin core.HandleID) {
	key := typingKey{room: room, user: user}

	t.mu.Lock()
	timer, active := t.timers[key]
	switch {
	case typing && active:
		timer.Reset(t.ttl)
		t.mu.Unlock()
		return
	case typing:
		t.timers[key] = time.AfterFunc(t.ttl, func() { t.expire(key) })
	case active:
		timer.Stop()
		delete(t.timers, key)
	default:
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.dispatch.SendToRoom(room, core.NewTypingChanged(room, user, typing), origin)
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	if _, ok := t.timers[key]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	t.mu.Unlock()

	log.Debug().Str("module", "app.typing").Str("room", string(key.room)).Str("user", string(key.user)).Msg("typing expired")
	t.dispatch.SendToRoom(key.room, core.NewTypingChanged(key.room, key.user, false))
}

// Clear cancels pending typing state for (room, user) and, if it was set,
// broadcasts the final "not typing". Used by the disconnect cascade and
// after a message send.
func (t *TypingTracker) Clear(room domain.RoomID, user domain.UserID) {
	key := typingKey{room: room, user: user}

	t.mu.Lock()
	timer, active := t.timers[key]
	if active {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()

	if active {
		t.dispatch.SendToRoom(room, core.NewTypingChanged(room, user, false))
	}
}

// Stop cancels all pending timers without broadcasting. Shutdown only.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
