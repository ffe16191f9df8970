package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxContentLen = 4096
	MaxEmojiLen   = 16
)

var (
	ErrContentEmpty   = errors.New("message content empty")
	ErrContentTooLong = errors.New("message content too long")
	ErrBadMessageType = errors.New("unknown message type")
	ErrEmojiEmpty     = errors.New("emoji empty")
	ErrEmojiTooLong   = errors.New("emoji too long")
)

type (
	MessageID   string
	MessageType string
)

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

type Message struct {
	ID        MessageID   `json:"id"`
	RoomID    RoomID      `json:"roomId"`
	AuthorID  UserID      `json:"authorId"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	ReplyToID MessageID   `json:"replyToId,omitempty"`
	// FileRef is the out-of-band upload reference for file messages.
	FileRef   string    `json:"fileRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(room RoomID, author UserID, typ MessageType, content string) (*Message, error) {
	switch typ {
	case MessageText:
		if len(content) == 0 {
			return nil, ErrContentEmpty
		}
	case MessageFile:
	default:
		return nil, ErrBadMessageType
	}
	if len(content) > MaxContentLen {
		return nil, ErrContentTooLong
	}
	return &Message{
		ID:        MessageID(uuid.NewString()),
		RoomID:    room,
		AuthorID:  author,
		Type:      typ,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateEmoji bounds what a client may attach as a reaction key.
func ValidateEmoji(emoji string) error {
	if len(emoji) == 0 {
		return ErrEmojiEmpty
	}
	if len(emoji) > MaxEmojiLen {
		return ErrEmojiTooLong
	}
	return nil
}
