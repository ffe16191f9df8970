package domain

import "errors"

const MaxRoomNameLen = 64

var ErrRoomNameEmpty = errors.New("room name empty")

type (
	RoomID   string
	RoomKind string
)

const (
	RoomConversation RoomKind = "conversation"
	RoomChannel      RoomKind = "channel"
)

// Room is a broadcast scope: either a direct conversation or a channel.
type Room struct {
	ID   RoomID   `json:"id"`
	Name string   `json:"name"`
	Kind RoomKind `json:"kind"`
}

func NewRoom(id RoomID, name string, kind RoomKind) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		name = name[:MaxRoomNameLen]
	}
	if kind != RoomChannel {
		kind = RoomConversation
	}
	return &Room{ID: id, Name: name, Kind: kind}, nil
}
