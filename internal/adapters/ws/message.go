package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/app"
	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

func (ctl *Controller) handleMessage(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	type messagePayload struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Content string `json:"content"`
		MsgType string `json:"msgType"`
		ReplyTo string `json:"replyTo,omitempty"`
		FileRef string `json:"fileRef,omitempty"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	if !ctl.limiter.Allow(sess.UserID) {
		ctl.sendError(c, "rate_limited")
		return
	}

	msgType := domain.MessageType(p.MsgType)
	if msgType == "" {
		msgType = domain.MessageText
	}

	msg, err := ctl.gw.SendMessage(ctx, sess, domain.RoomID(p.Room), p.Content, msgType, domain.MessageID(p.ReplyTo), p.FileRef)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotAMember):
			ctl.sendError(c, "not_a_member")
		case errors.Is(err, domain.ErrContentEmpty), errors.Is(err, domain.ErrContentTooLong), errors.Is(err, domain.ErrBadMessageType):
			ctl.sendError(c, "bad_payload")
		default:
			log.Error().Err(err).Str("module", "ws").Str("room", p.Room).Msg("send message failed")
			ctl.sendError(c, "send_failed")
		}
		return
	}

	// The room broadcast carries the full message back to the sender;
	// the ack only confirms the assigned id.
	ctl.sendJSON(c, map[string]any{
		"type":      "messageAck",
		"messageId": msg.ID,
	})
}
