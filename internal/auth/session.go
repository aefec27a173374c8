package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joshua-takyi/homeswift/internal/models"
)

type SessionStrategy struct {
	sessions models.SessionRepo
	users    models.UserRepo
	now      func() time.Time
}

func NewSessionStrategy(sessions models.SessionRepo, users models.UserRepo) *SessionStrategy {
	return &SessionStrategy{
		sessions: sessions,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionStrategy) Authenticate(r *http.Request) (*Principal, error) {
	sid := cookieValue(r, SessionCookieName)
	if sid == "" {
		return nil, ErrNoCredentials
	}
	ctx := r.Context()

	sess, err := s.sessions.GetSession(ctx, sid)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown session", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.sessions.DeleteSession(ctx, sid)
		return nil, fmt.Errorf("%w: session expired", ErrInvalidCredentials)
	}

	u, err := s.users.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	p := newPrincipal(u, StrategySession)
	p.SessionID = sid
	return p, nil
}
