// Package auth resolves the caller of an HTTP request into a Principal.
//
// Strategies are tried in order by a Chain. A strategy that finds no
// credentials of its kind returns ErrNoCredentials and the chain moves on;
// any other error stops the chain so a bad token never falls through to a
// weaker credential.
package auth

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/models"
)

const (
	SessionCookieName  = "sid"
	SupabaseCookieName = "sb-access-token"
	RefreshCookieName  = "sb-refresh-token"

	StrategySession  = "session"
	StrategyBearer   = "bearer"
	StrategySupabase = "supabase"
)

var (
	ErrNoCredentials      = errors.New("no credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Principal struct {
	UserID    uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	Strategy  string       `json:"strategy"`
	SessionID string       `json:"-"`
	User      *models.User `json:"-"`
}

func newPrincipal(u *models.User, strategy string) *Principal {
	return &Principal{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     u.Role,
		Strategy: strategy,
		User:     u,
	}
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p *Principal) HasRole(role string) bool {
	return p.Role == role
}

// IsOwner reports whether the principal is the given user.
func (p *Principal) IsOwner(userID uuid.UUID) bool {
	return p.UserID == userID
}

type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

type Chain []Authenticator

func NewChain(strategies ...Authenticator) Chain {
	return Chain(strategies)
}

func (c Chain) Authenticate(r *http.Request) (*Principal, error) {
	for _, s := range c {
		p, err := s.Authenticate(r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, ErrNoCredentials
}

// Authorize is true when no roles are required or the principal holds one of them.
func Authorize(p *Principal, roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	if p == nil {
		return false
	}
	return slices.ContainsFunc(roles, p.HasRole)
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
