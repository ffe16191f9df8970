package ws

import (
	"encoding/json"
	"errors"

	"github.com/parleychat/parley/internal/app"
	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

func (ctl *Controller) handleTyping(sess *core.Session, c *wsConn, data []byte) {
	type typingPayload struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		IsTyping bool   `json:"isTyping"`
	}
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	if err := ctl.gw.SetTyping(sess, domain.RoomID(p.Room), p.IsTyping); err != nil {
		if errors.Is(err, app.ErrNotAMember) {
			ctl.sendError(c, "not_a_member")
			return
		}
		ctl.sendError(c, "typing_failed")
	}
}
