package core

import (
	"time"

	"github.com/parleychat/parley/internal/domain"
)

// Frame is an encoded outbound payload, ready for a single transport write.
type Frame []byte

// HandleID identifies one live transport session.
type HandleID string

// Conn abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Session binds a connection handle to its owning user and transport
// endpoint. This is what the registry stores and the dispatcher fans
// out to.
type Session struct {
	Handle    HandleID
	UserID    domain.UserID
	Username  string
	Conn      Conn
	CreatedAt time.Time
}

func NewSession(handle HandleID, user *domain.User, conn Conn) *Session {
	return &Session{
		Handle:    handle,
		UserID:    user.ID,
		Username:  user.Username,
		Conn:      conn,
		CreatedAt: time.Now(),
	}
}

// DeliveryResult reports fan-out stats and backpressure to the gateway.
type DeliveryResult struct {
	SentTo  int
	Dropped []HandleID
}

// MemberDTO is a read-only member view for clients (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}
