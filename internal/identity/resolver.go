// Package identity is the authentication collaborator. The gateway
// trusts it exactly once per connection, at connect time.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/domain"
)

var ErrEmptyToken = errors.New("empty auth token")

// CookieResolver maps the client-token cookie to a stable user. The
// first sight of a token mints a guest; later connections with the same
// token resolve to the same user, which is what makes multi-device
// presence work.
type CookieResolver struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewCookieResolver() *CookieResolver {
	return &CookieResolver{users: make(map[string]*domain.User)}
}

func (r *CookieResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if len(token) > domain.MaxUserIDLen {
		token = token[:domain.MaxUserIDLen]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[token]; ok {
		return u, nil
	}
	u := &domain.User{ID: domain.UserID(token), Username: "guest"}
	r.users[token] = u
	log.Info().Str("module", "identity").Str("user", string(u.ID)).Msg("created new user")
	return u, nil
}

// UpdateUsername renames the user behind a token, if known.
func (r *CookieResolver) UpdateUsername(token, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[token]
	if !ok {
		return ErrEmptyToken
	}
	return u.SetUsername(name)
}
