package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

func (ctl *Controller) handleJoin(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Error().Err(err).Str("module", "ws").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	state, err := ctl.gw.JoinRoom(ctx, sess, domain.RoomID(p.Room))
	if err != nil {
		ctl.sendError(c, "join_failed")
		return
	}
	log.Info().Str("module", "ws").Str("handle", string(sess.Handle)).Str("room", p.Room).Msg("join")

	resp := struct {
		Type  string `json:"type"`
		State any    `json:"state"`
	}{
		Type:  "roomState",
		State: state,
	}
	ctl.sendJSON(c, resp)
}

func (ctl *Controller) handleLeave(sess *core.Session, c *wsConn, data []byte) {
	type leavePayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	log.Info().Str("module", "ws").Str("handle", string(sess.Handle)).Str("room", p.Room).Msg("leave")
	ctl.gw.LeaveRoom(sess, domain.RoomID(p.Room))
	ctl.sendJSON(c, map[string]any{
		"type": "left",
		"room": p.Room,
	})
}
