package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

// PresenceFlip reports whether a register/unregister crossed the
// empty/non-empty boundary for the owning user's handle set.
type PresenceFlip int

const (
	FlipNone PresenceFlip = iota
	FlipOnline
	FlipOffline
)

// Registry owns the handle table: user -> live handles and handle -> session.
// Its cardinality is the sole source of truth for presence, so the flip is
// computed inside the same critical section as the mutation.
type Registry struct {
	mu       sync.RWMutex
	byHandle map[core.HandleID]*core.Session
	byUser   map[domain.UserID]map[core.HandleID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		byHandle: make(map[core.HandleID]*core.Session),
		byUser:   make(map[domain.UserID]map[core.HandleID]*core.Session),
	}
}

// Register adds the session's handle to its user's set. Registering the
// same handle twice is a no-op. Returns FlipOnline when this is the
// user's first handle.
func (r *Registry) Register(sess *core.Session) PresenceFlip {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHandle[sess.Handle]; ok {
		return FlipNone
	}
	r.byHandle[sess.Handle] = sess

	handles, ok := r.byUser[sess.UserID]
	if !ok {
		handles = make(map[core.HandleID]*core.Session)
		r.byUser[sess.UserID] = handles
	}
	wasOnline := len(handles) > 0
	handles[sess.Handle] = sess

	log.Info().Str("module", "app.registry").Str("handle", string(sess.Handle)).Str("user", string(sess.UserID)).Int("handles", len(handles)).Msg("registered handle")
	if !wasOnline {
		return FlipOnline
	}
	return FlipNone
}

// Unregister removes the handle from its owner's set. Unknown handles are
// a no-op (disconnects can be reported twice). Returns the removed session
// and FlipOffline when this was the user's last handle.
func (r *Registry) Unregister(handle core.HandleID) (*core.Session, PresenceFlip) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byHandle[handle]
	if !ok {
		return nil, FlipNone
	}
	delete(r.byHandle, handle)

	handles := r.byUser[sess.UserID]
	delete(handles, handle)
	log.Info().Str("module", "app.registry").Str("handle", string(handle)).Str("user", string(sess.UserID)).Int("handles", len(handles)).Msg("unregistered handle")
	if len(handles) == 0 {
		delete(r.byUser, sess.UserID)
		return sess, FlipOffline
	}
	return sess, FlipNone
}

// ListHandles returns a snapshot of the user's live handles.
func (r *Registry) ListHandles(user domain.UserID) []core.HandleID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.HandleID, 0, len(r.byUser[user]))
	for h := range r.byUser[user] {
		out = append(out, h)
	}
	return out
}

func (r *Registry) IsOnline(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user]) > 0
}

// Session resolves a handle to its session, if still registered.
func (r *Registry) Session(handle core.HandleID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byHandle[handle]
	return sess, ok
}

// Conn resolves a handle to its transport. Used by the dispatcher so a
// broadcast never writes to a handle the registry no longer knows.
func (r *Registry) Conn(handle core.HandleID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byHandle[handle]
	if !ok {
		return nil, false
	}
	return sess.Conn, true
}

func (r *Registry) HandleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}
