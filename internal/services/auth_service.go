package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"golang.org/x/crypto/bcrypt"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/models"
)

const (
	DefaultBcryptCost = 12
	ResetTokenTTL     = time.Hour
	VerifyTokenTTL    = 24 * time.Hour
	sessionIDBytes    = 32
)

var oauthProviders = []string{"google"}

// ManagedAuth is the slice of Supabase Auth the service calls directly.
type ManagedAuth interface {
	RefreshToken(refreshToken string) (*types.TokenResponse, error)
	Logout(accessToken string) error
}

type gotrueAuth struct {
	client gotrue.Client
}

func NewGotrueAuth(client gotrue.Client) ManagedAuth {
	return &gotrueAuth{client: client}
}

func (g *gotrueAuth) RefreshToken(refreshToken string) (*types.TokenResponse, error) {
	return g.client.RefreshToken(refreshToken)
}

func (g *gotrueAuth) Logout(accessToken string) error {
	return g.client.WithToken(accessToken).Logout()
}

type AuthConfig struct {
	JWTSecret   []byte
	JWTTTL      time.Duration
	SessionTTL  time.Duration
	SupabaseURL string
	BcryptCost  int
}

type AuthService struct {
	users    models.UserRepo
	sessions models.SessionRepo
	supabase *auth.SupabaseStrategy
	managed  ManagedAuth
	cfg      AuthConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService wires the local account flows. supabase and managed may be
// nil, in which case the OAuth and refresh flows report ErrUnavailable.
func NewAuthService(users models.UserRepo, sessions models.SessionRepo, supabase *auth.SupabaseStrategy, managed ManagedAuth, cfg AuthConfig, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		supabase: supabase,
		managed:  managed,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Phone     string `json:"phone" validate:"max=32"`
}

// ClientMeta describes the client a session is issued to.
type ClientMeta struct {
	UserAgent string
	IP        string
}

type AuthResult struct {
	User           *models.User `json:"user"`
	Token          string       `json:"token"`
	ExpiresAt      time.Time    `json:"expires_at"`
	SessionID      string       `json:"-"`
	SessionExpires time.Time    `json:"-"`
}

func (as *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), as.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (as *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := models.Validate.Struct(in); err != nil {
		return nil, err
	}
	if !helpers.IsPasswordStrong(in.Password) {
		return nil, ErrWeakPassword
	}
	hash, err := as.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	token, err := helpers.RandomToken(32)
	if err != nil {
		return nil, err
	}
	tokenHash := helpers.HashToken(token)
	expires := as.now().Add(VerifyTokenTTL)

	u, err := as.users.CreateUser(ctx, &models.User{
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		Email:               in.Email,
		Phone:               strings.TrimSpace(in.Phone),
		PasswordHash:        hash,
		Role:                models.RoleUser,
		AuthProvider:        models.ProviderLocal,
		VerificationToken:   &tokenHash,
		VerificationExpires: &expires,
	})
	as.metrics.RecordAuthAttempt("register", err == nil)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", in.Email, err)
	}
	as.logger.Info("verification token issued", "user_id", u.ID)
	return u, nil
}

// Login checks a local password. Unknown emails and wrong passwords fail
// with the same error.
func (as *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*AuthResult, error) {
	u, err := as.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err != nil || u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		as.metrics.RecordAuthAttempt("login", false)
		return nil, auth.ErrInvalidCredentials
	}
	as.metrics.RecordAuthAttempt("login", true)

	u, err = as.users.UpdateUser(ctx, u.ID, map[string]any{"last_login_at": as.now()})
	if err != nil {
		return nil, err
	}
	return as.startSession(ctx, u, meta)
}

func (as *AuthService) startSession(ctx context.Context, u *models.User, meta ClientMeta) (*AuthResult, error) {
	token, expires, err := auth.IssueToken(as.cfg.JWTSecret, u, as.cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	sid, err := helpers.RandomToken(sessionIDBytes)
	if err != nil {
		return nil, err
	}
	now := as.now()
	sess := &models.Session{
		SID:       sid,
		UserID:    u.ID,
		ExpiresAt: now.Add(as.cfg.SessionTTL),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		CreatedAt: now,
	}
	if err := as.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &AuthResult{
		User:           u,
		Token:          token,
		ExpiresAt:      expires,
		SessionID:      sid,
		SessionExpires: sess.ExpiresAt,
	}, nil
}

// Logout ends the local session and, when given, the Supabase session.
// Managed sign-out is best effort.
func (as *AuthService) Logout(ctx context.Context, sessionID, supabaseToken string) error {
	if sessionID != "" {
		if err := as.sessions.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}
	if supabaseToken != "" && as.managed != nil {
		if err := as.managed.Logout(supabaseToken); err != nil {
			as.logger.Warn("Supabase sign-out failed", "error", err)
		}
	}
	return nil
}

func (as *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return as.users.GetUserByID(ctx, userID)
}

// ForgotPassword issues a reset token for email. It returns an empty token
// and no error for unknown addresses so callers answer identically.
func (as *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := as.users.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	token, err := helpers.RandomToken(32)
	if err != nil {
		return "", err
	}
	_, err = as.users.UpdateUser(ctx, u.ID, map[string]any{
		"reset_token":   helpers.HashToken(token),
		"reset_expires": as.now().Add(ResetTokenTTL),
	})
	if err != nil {
		return "", err
	}
	as.logger.Info("password reset token issued", "user_id", u.ID)
	return token, nil
}

func (as *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}
	u, err := as.users.GetUserByResetToken(ctx, helpers.HashToken(token))
	if errors.Is(err, models.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if u.ResetExpires == nil || !as.now().Before(*u.ResetExpires) {
		return ErrInvalidToken
	}
	if !helpers.IsPasswordStrong(password) {
		return ErrWeakPassword
	}
	hash, err := as.hashPassword(password)
	if err != nil {
		return err
	}
	_, err = as.users.UpdateUser(ctx, u.ID, map[string]any{
		"password_hash": hash,
		"reset_token":   nil,
		"reset_expires": nil,
	})
	if err != nil {
		return err
	}
	return as.sessions.DeleteUserSessions(ctx, u.ID)
}

func (as *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	u, err := as.users.GetUserByVerificationToken(ctx, helpers.HashToken(token))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.VerificationExpires == nil || !as.now().Before(*u.VerificationExpires) {
		return nil, ErrInvalidToken
	}
	return as.users.UpdateUser(ctx, u.ID, map[string]any{
		"is_verified":          true,
		"verification_token":   nil,
		"verification_expires": nil,
	})
}

// ChangePassword requires the current password unless the account has none
// yet (OAuth-only users setting a first password).
func (as *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	u, err := as.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash != "" &&
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return auth.ErrInvalidCredentials
	}
	if !helpers.IsPasswordStrong(next) {
		return ErrWeakPassword
	}
	hash, err := as.hashPassword(next)
	if err != nil {
		return err
	}
	_, err = as.users.UpdateUser(ctx, userID, map[string]any{"password_hash": hash})
	return err
}

// OAuthURL builds the Supabase authorize URL for provider.
func (as *AuthService) OAuthURL(provider, redirectTo string) (string, error) {
	if as.cfg.SupabaseURL == "" {
		return "", fmt.Errorf("oauth: %w", ErrUnavailable)
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	supported := false
	for _, p := range oauthProviders {
		if p == provider {
			supported = true
		}
	}
	if !supported {
		return "", fmt.Errorf("oauth provider %q: %w", provider, models.ErrInvalidInput)
	}
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	return strings.TrimRight(as.cfg.SupabaseURL, "/") + "/auth/v1/authorize?" + q.Encode(), nil
}

// OAuthSession exchanges a Supabase access token for a local session.
func (as *AuthService) OAuthSession(ctx context.Context, accessToken string, meta ClientMeta) (*AuthResult, error) {
	if as.supabase == nil {
		return nil, fmt.Errorf("oauth session: %w", ErrUnavailable)
	}
	claims, err := as.supabase.Verify(accessToken)
	if err != nil {
		as.metrics.RecordAuthAttempt("oauth", false)
		return nil, err
	}
	u, err := as.supabase.ResolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	as.metrics.RecordAuthAttempt("oauth", true)
	u, err = as.users.UpdateUser(ctx, u.ID, map[string]any{"last_login_at": as.now()})
	if err != nil {
		return nil, err
	}
	return as.startSession(ctx, u, meta)
}

// Refresh trades a Supabase refresh token for a new token pair.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	if as.managed == nil {
		return nil, fmt.Errorf("refresh: %w", ErrUnavailable)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, auth.ErrNoCredentials
	}
	res, err := as.managed.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", auth.ErrInvalidCredentials, err)
	}
	return res, nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (as *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := as.sessions.DeleteExpiredSessions(ctx, as.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		as.logger.Info("expired sessions purged", "count", n)
	}
	return n, nil
}
