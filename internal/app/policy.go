package app

import (
	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what to do with a recipient whose send queue rejected a
// broadcast frame.
type Policy interface {
	OnBackpressure(room domain.RoomID, handle core.HandleID) BackpressureAction
}

// SimplePolicy treats a full send queue as a dead consumer.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(room domain.RoomID, handle core.HandleID) BackpressureAction {
	return KickMember
}

// ApplyBackpressure runs the policy over a delivery result. Kicked
// handles are driven through the normal disconnect cascade.
func (g *Gateway) ApplyBackpressure(room domain.RoomID, res core.DeliveryResult) {
	if g.policy == nil {
		return
	}
	for _, handle := range res.Dropped {
		switch g.policy.OnBackpressure(room, handle) {
		case KickMember:
			if sess, ok := g.registry.Session(handle); ok {
				log.Warn().Str("module", "app.gateway").Str("handle", string(handle)).Str("room", string(room)).Msg("kicking slow consumer")
				g.Disconnect(sess)
				sess.Conn.Close()
			}
		case MarkSlow, DropFrame, NoAction:
		}
	}
}
