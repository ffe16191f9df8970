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

// Toggle operations reply with the same event that is broadcast to the
// room; the broadcast is the client's confirmation, and its absence
// within the client's timeout is the rollback trigger for optimistic UI.

func (ctl *Controller) handleReaction(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	type reactionPayload struct {
		Type      string `json:"type"`
		MessageID string `json:"messageId"`
		Emoji     string `json:"emoji"`
	}
	var p reactionPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	_, err := ctl.gw.ToggleReaction(ctx, sess, domain.MessageID(p.MessageID), p.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownTarget):
			ctl.sendError(c, "unknown_target")
		case errors.Is(err, app.ErrNotAMember):
			ctl.sendError(c, "not_a_member")
		case errors.Is(err, domain.ErrEmojiEmpty), errors.Is(err, domain.ErrEmojiTooLong):
			ctl.sendError(c, "bad_payload")
		default:
			log.Error().Err(err).Str("module", "ws").Str("message", p.MessageID).Msg("reaction toggle failed")
			ctl.sendError(c, "reaction_failed")
		}
	}
}

func (ctl *Controller) handleVote(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	type votePayload struct {
		Type     string `json:"type"`
		TargetID string `json:"targetId"`
		Vote     string `json:"vote"`
	}
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	voteType, err := domain.ParseVoteType(p.Vote)
	if err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	if _, err := ctl.gw.CastVote(ctx, sess, domain.TargetID(p.TargetID), voteType); err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownTarget):
			ctl.sendError(c, "unknown_target")
		default:
			log.Error().Err(err).Str("module", "ws").Str("target", p.TargetID).Msg("vote failed")
			ctl.sendError(c, "vote_failed")
		}
	}
}
