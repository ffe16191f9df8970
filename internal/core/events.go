package core

import (
	"encoding/json"
	"time"

	"github.com/parleychat/parley/internal/domain"
)

// Outbound event kinds. The set is closed: every event the gateway can
// emit is one of the structs below, discriminated by its Type field.
const (
	EventMessageReceived = "messageReceived"
	EventReactionChanged = "reactionChanged"
	EventVoteChanged     = "voteChanged"
	EventTypingChanged   = "typingChanged"
	EventPresenceChanged = "presenceChanged"
	EventMemberJoined    = "memberJoined"
	EventMemberLeft      = "memberLeft"
)

// Event is anything the dispatcher can encode and fan out.
type Event interface {
	Encode() (Frame, error)
}

type MessageReceived struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message"`
}

func NewMessageReceived(m *domain.Message) MessageReceived {
	return MessageReceived{Type: EventMessageReceived, Message: m}
}

func (e MessageReceived) Encode() (Frame, error) { return json.Marshal(e) }

type ReactionChanged struct {
	Type      string           `json:"type"`
	MessageID domain.MessageID `json:"messageId"`
	Emoji     string           `json:"emoji"`
	UserID    domain.UserID    `json:"userId"`
	Reacted   bool             `json:"reacted"`
	Users     []domain.UserID  `json:"users"`
}

func (e ReactionChanged) Encode() (Frame, error) { return json.Marshal(e) }

type VoteChanged struct {
	Type     string          `json:"type"`
	TargetID domain.TargetID `json:"targetId"`
	UserID   domain.UserID   `json:"userId"`
	// Vote is nil when the user's vote was removed.
	Vote  *domain.VoteType `json:"vote"`
	Score int              `json:"score"`
}

func (e VoteChanged) Encode() (Frame, error) { return json.Marshal(e) }

type TypingChanged struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	IsTyping bool          `json:"isTyping"`
}

func NewTypingChanged(room domain.RoomID, user domain.UserID, typing bool) TypingChanged {
	return TypingChanged{Type: EventTypingChanged, RoomID: room, UserID: user, IsTyping: typing}
}

func (e TypingChanged) Encode() (Frame, error) { return json.Marshal(e) }

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

type PresenceChanged struct {
	Type      string         `json:"type"`
	UserID    domain.UserID  `json:"userId"`
	Status    PresenceStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewPresenceChanged(user domain.UserID, status PresenceStatus) PresenceChanged {
	return PresenceChanged{
		Type:      EventPresenceChanged,
		UserID:    user,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

func (e PresenceChanged) Encode() (Frame, error) { return json.Marshal(e) }

type MemberJoined struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	User   domain.User   `json:"user"`
}

func NewMemberJoined(room domain.RoomID, user domain.User) MemberJoined {
	return MemberJoined{Type: EventMemberJoined, RoomID: room, User: user}
}

func (e MemberJoined) Encode() (Frame, error) { return json.Marshal(e) }

type MemberLeft struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	User   domain.User   `json:"user"`
}

func NewMemberLeft(room domain.RoomID, user domain.User) MemberLeft {
	return MemberLeft{Type: EventMemberLeft, RoomID: room, User: user}
}

func (e MemberLeft) Encode() (Frame, error) { return json.Marshal(e) }
