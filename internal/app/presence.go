package app

import (
	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

// Presence turns registry flips into presenceChanged events. It is a
// stateless observer: the registry's handle cardinality already
// de-duplicates transitions, so every flip that reaches Announce is
// broadcast exactly once.
type Presence struct {
	dispatch *Dispatcher
}

func NewPresence(dispatch *Dispatcher) *Presence {
	return &Presence{dispatch: dispatch}
}

// Announce fans the flip out to the given rooms (de-duplicated). A
// FlipNone — e.g. a second device for an already-online user — emits
// nothing.
func (p *Presence) Announce(user domain.UserID, flip PresenceFlip, rooms []domain.RoomID, exclude ...core.HandleID) {
	var status core.PresenceStatus
	switch flip {
	case FlipOnline:
		status = core.PresenceOnline
	case FlipOffline:
		status = core.PresenceOffline
	default:
		return
	}

	ev := core.NewPresenceChanged(user, status)
	seen := make(map[domain.RoomID]struct{}, len(rooms))
	for _, room := range rooms {
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		p.dispatch.SendToRoom(room, ev, exclude...)
	}
	log.Info().Str("module", "app.presence").Str("user", string(user)).Str("status", string(status)).Int("rooms", len(seen)).Msg("presence flip")
}
