package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/models"
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for u.
func IssueToken(secret []byte, u *models.User, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

type BearerStrategy struct {
	secret []byte
	users  models.UserRepo
	// ForwardForeign leaves bearer tokens not signed with HS256 to a later
	// strategy instead of rejecting them.
	ForwardForeign bool
}

func NewBearerStrategy(secret []byte, users models.UserRepo) *BearerStrategy {
	return &BearerStrategy{secret: secret, users: users}
}

func (b *BearerStrategy) Authenticate(r *http.Request) (*Principal, error) {
	raw := BearerToken(r)
	if raw == "" {
		return nil, ErrNoCredentials
	}
	if b.ForwardForeign && !isHS256(raw) {
		return nil, ErrNoCredentials
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidCredentials)
	}
	u, err := b.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	return newPrincipal(u, StrategyBearer), nil
}

func isHS256(raw string) bool {
	t, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return false
	}
	return t.Method.Alg() == jwt.SigningMethodHS256.Alg()
}
