package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/joshua-takyi/homeswift/internal/models"
)

// SupabaseClaims are the claims of a Supabase Auth access token.
type SupabaseClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (c *SupabaseClaims) metadata(key string) string {
	v, _ := c.UserMetadata[key].(string)
	return strings.TrimSpace(v)
}

// NewJWKS fetches the project's signing keys once and keeps them refreshed
// in the background until ctx is done.
func NewJWKS(ctx context.Context, supabaseURL string, logger *slog.Logger) (*keyfunc.JWKS, error) {
	jwksURL := fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimRight(supabaseURL, "/"))
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return jwks, nil
}

type SupabaseStrategy struct {
	keyfunc jwt.Keyfunc
	users   models.UserRepo
}

func NewSupabaseStrategy(kf jwt.Keyfunc, users models.UserRepo) *SupabaseStrategy {
	return &SupabaseStrategy{keyfunc: kf, users: users}
}

func (s *SupabaseStrategy) Authenticate(r *http.Request) (*Principal, error) {
	raw := BearerToken(r)
	if raw == "" || isHS256(raw) {
		raw = cookieValue(r, SupabaseCookieName)
	}
	if raw == "" {
		return nil, ErrNoCredentials
	}
	claims, err := s.Verify(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.ResolveUser(r.Context(), claims)
	if err != nil {
		return nil, err
	}
	return newPrincipal(u, StrategySupabase), nil
}

// Verify checks a Supabase access token against the JWKS.
func (s *SupabaseStrategy) Verify(raw string) (*SupabaseClaims, error) {
	claims := &SupabaseClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.keyfunc, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: token lacks subject or email", ErrInvalidCredentials)
	}
	return claims, nil
}

// ResolveUser finds the local user behind a Supabase identity: by external
// id, then by email (linking the account), creating it on first sight.
func (s *SupabaseStrategy) ResolveUser(ctx context.Context, claims *SupabaseClaims) (*models.User, error) {
	u, err := s.users.GetUserByExternalID(ctx, claims.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	u, err = s.users.GetUserByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		return s.users.UpdateUser(ctx, u.ID, map[string]any{
			"external_id": claims.Subject,
			"is_verified": true,
		})
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	externalID := claims.Subject
	first, last := splitName(claims.metadata("full_name"))
	if first == "" {
		first, last = splitName(claims.metadata("name"))
	}
	provider := models.ProviderSupabase
	if claims.AppMetadata.Provider == models.ProviderGoogle {
		provider = models.ProviderGoogle
	}
	created, err := s.users.CreateUser(ctx, &models.User{
		Email:        claims.Email,
		FirstName:    first,
		LastName:     last,
		AvatarURL:    claims.metadata("avatar_url"),
		ExternalID:   &externalID,
		AuthProvider: provider,
		IsVerified:   true,
	})
	if errors.Is(err, models.ErrAlreadyExists) {
		// Lost a race with a concurrent first request.
		return s.users.GetUserByExternalID(ctx, claims.Subject)
	}
	return created, err
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
