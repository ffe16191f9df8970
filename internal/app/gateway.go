package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/core"
	"github.com/parleychat/parley/internal/domain"
)

// HistoryStore is the durable persistence collaborator. The gateway
// writes confirmed messages and toggle results through it and reads
// history only for join backfill, never for live dispatch.
type HistoryStore interface {
	InsertMessage(ctx context.Context, m *domain.Message) error
	RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.Message, error)
	MessageRoom(ctx context.Context, id domain.MessageID) (domain.RoomID, bool, error)
	SetReaction(ctx context.Context, id domain.MessageID, emoji string, user domain.UserID, reacted bool) error
	TargetRoom(ctx context.Context, id domain.TargetID) (domain.RoomID, bool, error)
	SetVote(ctx context.Context, id domain.TargetID, user domain.UserID, vote *domain.VoteType, score int) error
}

// IdentityResolver authenticates an inbound connection's token. The
// gateway trusts it once, at connect time.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

const historyBackfillLimit = 50

// Gateway wires the registry, membership index, presence tracker, typing
// tracker, toggle engine and dispatcher behind the transport-agnostic
// operations the adapters call.
type Gateway struct {
	registry *Registry
	members  *Membership
	dispatch *Dispatcher
	presence *Presence
	typing   *TypingTracker
	toggles  *ToggleEngine
	store    HistoryStore
	identity IdentityResolver
	policy   Policy
}

func NewGateway(store HistoryStore, identity IdentityResolver, typingTTL time.Duration) *Gateway {
	registry := NewRegistry()
	members := NewMembership()
	dispatch := NewDispatcher(members, registry)
	return &Gateway{
		registry: registry,
		members:  members,
		dispatch: dispatch,
		presence: NewPresence(dispatch),
		typing:   NewTypingTracker(typingTTL, dispatch),
		toggles:  NewToggleEngine(),
		store:    store,
		identity: identity,
		policy:   SimplePolicy{},
	}
}

// SetPolicy replaces the backpressure policy. Nil disables kicking.
func (g *Gateway) SetPolicy(p Policy) { g.policy = p }

func (g *Gateway) Registry() *Registry     { return g.registry }
func (g *Gateway) Membership() *Membership { return g.members }

// Connect authenticates the token, mints a handle and registers it.
// The online flip needs no fan-out: it can only fire on the user's first
// handle, and room membership is per-handle, so no room can hold the
// user yet.
func (g *Gateway) Connect(ctx context.Context, token string, conn core.Conn) (*core.Session, error) {
	user, err := g.identity.Resolve(ctx, token)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	sess := core.NewSession(core.HandleID(uuid.NewString()), user, conn)
	g.registry.Register(sess)
	log.Info().Str("module", "app.gateway").Str("handle", string(sess.Handle)).Str("user", string(user.ID)).Msg("connected")
	return sess, nil
}

// RoomState is the caller's snapshot after a join.
type RoomState struct {
	RoomID   domain.RoomID     `json:"roomId"`
	Members  []core.MemberDTO  `json:"members"`
	MemberN  int               `json:"count"`
	Recent   []*domain.Message `json:"recent"`
	JoinedAt time.Time         `json:"joinedAt"`
}

// JoinRoom subscribes the handle. Other members get memberJoined; the
// caller gets the room snapshot plus recent history backfill.
func (g *Gateway) JoinRoom(ctx context.Context, sess *core.Session, room domain.RoomID) (*RoomState, error) {
	if _, ok := g.registry.Session(sess.Handle); !ok {
		return nil, ErrUnknownHandle
	}
	// A repeated join changes nothing and must not re-announce.
	if g.members.Join(sess.Handle, room) {
		g.dispatch.SendToRoom(room, core.NewMemberJoined(room, domain.User{ID: sess.UserID, Username: sess.Username}), sess.Handle)
	}

	recent, err := g.store.RecentMessages(ctx, room, historyBackfillLimit)
	if err != nil {
		// Backfill is read-side sugar; membership already succeeded.
		log.Warn().Err(err).Str("module", "app.gateway").Str("room", string(room)).Msg("history backfill failed")
		recent = nil
	}
	return &RoomState{
		RoomID:   room,
		Members:  g.roomMembers(room),
		MemberN:  len(g.members.MembersOf(room)),
		Recent:   recent,
		JoinedAt: time.Now().UTC(),
	}, nil
}

// LeaveRoom unsubscribes the handle; remaining members get memberLeft.
// Leaving a room the handle never joined is a no-op.
func (g *Gateway) LeaveRoom(sess *core.Session, room domain.RoomID) {
	if !g.members.IsMember(sess.Handle, room) {
		return
	}
	g.members.Leave(sess.Handle, room)
	g.typing.Clear(room, sess.UserID)
	g.dispatch.SendToRoom(room, core.NewMemberLeft(room, domain.User{ID: sess.UserID, Username: sess.Username}))
}

// SendMessage validates membership, persists the message, then broadcasts
// messageReceived to the whole room. The sender is not excluded: the
// broadcast is the delivery confirmation.
func (g *Gateway) SendMessage(ctx context.Context, sess *core.Session, room domain.RoomID, content string, typ domain.MessageType, replyTo domain.MessageID, fileRef string) (*domain.Message, error) {
	if !g.members.IsMember(sess.Handle, room) {
		return nil, ErrNotAMember
	}
	msg, err := domain.NewMessage(room, sess.UserID, typ, content)
	if err != nil {
		return nil, err
	}
	msg.ReplyToID = replyTo
	msg.FileRef = fileRef

	if err := g.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	g.typing.Clear(room, sess.UserID)
	res := g.dispatch.SendToRoom(room, core.MessageReceived{Type: core.EventMessageReceived, Message: msg})
	g.ApplyBackpressure(room, res)
	return msg, nil
}

// SetTyping records the ephemeral signal. Membership is required; the
// indicator goes to the other members only.
func (g *Gateway) SetTyping(sess *core.Session, room domain.RoomID, isTyping bool) error {
	if !g.members.IsMember(sess.Handle, room) {
		return ErrNotAMember
	}
	g.typing.Set(room, sess.UserID, isTyping, sess.Handle)
	return nil
}

// ToggleReaction flips the caller's emoji reaction on a message. The
// resulting state is broadcast to the message's room, caller included,
// which doubles as the caller's confirmation.
func (g *Gateway) ToggleReaction(ctx context.Context, sess *core.Session, message domain.MessageID, emoji string) (*core.ReactionChanged, error) {
	if err := domain.ValidateEmoji(emoji); err != nil {
		return nil, err
	}
	room, ok, err := g.store.MessageRoom(ctx, message)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownTarget
	}
	if !g.members.IsMember(sess.Handle, room) {
		return nil, ErrNotAMember
	}

	reacted, users := g.toggles.ToggleReaction(message, emoji, sess.UserID)
	if err := g.store.SetReaction(ctx, message, emoji, sess.UserID, reacted); err != nil {
		// Durable state is authoritative: undo the in-memory toggle.
		g.toggles.ToggleReaction(message, emoji, sess.UserID)
		return nil, err
	}

	ev := core.ReactionChanged{
		Type:      core.EventReactionChanged,
		MessageID: message,
		Emoji:     emoji,
		UserID:    sess.UserID,
		Reacted:   reacted,
		Users:     users,
	}
	g.dispatch.SendToRoom(room, ev)
	return &ev, nil
}

// CastVote applies the toggle-vote algorithm for the caller on a post or
// comment and broadcasts the confirmed state to the target's room.
func (g *Gateway) CastVote(ctx context.Context, sess *core.Session, target domain.TargetID, requested domain.VoteType) (*core.VoteChanged, error) {
	room, ok, err := g.store.TargetRoom(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownTarget
	}

	prior, next, score := g.toggles.CastVote(target, sess.UserID, requested)
	if err := g.store.SetVote(ctx, target, sess.UserID, next, score); err != nil {
		// Durable state is authoritative: put the engine back to the
		// prior entry, whatever the toggle did.
		g.toggles.RestoreVote(target, sess.UserID, prior)
		return nil, err
	}

	ev := core.VoteChanged{
		Type:     core.EventVoteChanged,
		TargetID: target,
		UserID:   sess.UserID,
		Vote:     next,
		Score:    score,
	}
	g.dispatch.SendToRoom(room, ev)
	return &ev, nil
}

// Disconnect drives the cleanup cascade: notify each joined room's other
// members, drop the handle from the index, clear typing state, then
// unregister. Each step proceeds even if an earlier notification dropped;
// a second disconnect for the same handle is a no-op.
func (g *Gateway) Disconnect(sess *core.Session) {
	if _, ok := g.registry.Session(sess.Handle); !ok {
		return
	}

	rooms := g.members.RoomsOf(sess.Handle)
	user := domain.User{ID: sess.UserID, Username: sess.Username}
	for _, room := range rooms {
		g.dispatch.SendToRoom(room, core.NewMemberLeft(room, user), sess.Handle)
	}
	g.members.DropHandle(sess.Handle)

	_, flip := g.registry.Unregister(sess.Handle)
	if flip == FlipOffline {
		for _, room := range rooms {
			g.typing.Clear(room, sess.UserID)
		}
		g.presence.Announce(sess.UserID, flip, rooms, sess.Handle)
	}
	log.Info().Str("module", "app.gateway").Str("handle", string(sess.Handle)).Str("user", string(sess.UserID)).Int("rooms", len(rooms)).Msg("disconnected")
}

// Stop releases background resources (typing timers). Shutdown only.
func (g *Gateway) Stop() { g.typing.Stop() }

func (g *Gateway) roomMembers(room domain.RoomID) []core.MemberDTO {
	handles := g.members.MembersOf(room)
	out := make([]core.MemberDTO, 0, len(handles))
	seen := make(map[domain.UserID]struct{}, len(handles))
	for _, h := range handles {
		sess, ok := g.registry.Session(h)
		if !ok {
			continue
		}
		if _, dup := seen[sess.UserID]; dup {
			continue
		}
		seen[sess.UserID] = struct{}{}
		out = append(out, core.MemberDTO{ID: sess.UserID, Username: sess.Username})
	}
	return out
}
