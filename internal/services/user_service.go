package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

// ProfileInput lists the profile fields a user may change themselves.
type ProfileInput struct {
	FirstName   *string        `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string        `json:"last_name" validate:"omitempty,max=100"`
	Phone       *string        `json:"phone" validate:"omitempty,max=32"`
	AvatarURL   *string        `json:"avatar_url"`
	Preferences models.JSONMap `json:"preferences"`
}

type UserService struct {
	users    models.UserRepo
	uploader ImageUploader
	logger   *slog.Logger
}

func NewUserService(users models.UserRepo, uploader ImageUploader, logger *slog.Logger) *UserService {
	return &UserService{users: users, uploader: uploader, logger: logger}
}

func (us *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return us.users.GetUserByID(ctx, userID)
}

func (us *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, err
	}
	updates := make(map[string]any)
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Preferences != nil {
		updates["preferences"] = in.Preferences
	}
	if in.AvatarURL != nil {
		avatar, err := us.avatar(ctx, strings.TrimSpace(*in.AvatarURL))
		if err != nil {
			return nil, err
		}
		updates["avatar_url"] = avatar
	}
	if len(updates) == 0 {
		return us.users.GetUserByID(ctx, userID)
	}
	return us.users.UpdateUser(ctx, userID, updates)
}

func (us *UserService) avatar(ctx context.Context, src string) (string, error) {
	if src == "" || helpers.IsRemoteURL(src) {
		return src, nil
	}
	if us.uploader == nil {
		return "", fmt.Errorf("avatar must be an http(s) URL: %w", models.ErrInvalidInput)
	}
	url, err := us.uploader.Upload(ctx, src, helpers.AvatarFolder)
	if errors.Is(err, helpers.ErrUploadsDisabled) {
		return "", fmt.Errorf("avatar must be an http(s) URL: %w", models.ErrInvalidInput)
	}
	return url, err
}

func (us *UserService) SearchHistory(ctx context.Context, userID uuid.UUID) (models.SearchHistory, error) {
	u, err := us.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.SearchHistory == nil {
		return models.SearchHistory{}, nil
	}
	return u.SearchHistory, nil
}

func (us *UserService) ClearSearchHistory(ctx context.Context, userID uuid.UUID) error {
	_, err := us.users.UpdateUser(ctx, userID, map[string]any{"search_history": models.SearchHistory{}})
	return err
}

func (us *UserService) ListUsers(ctx context.Context, page query.Page) ([]*models.User, int, error) {
	return us.users.ListUsers(ctx, page)
}

// SetRole changes another user's role. Admins cannot demote themselves.
func (us *UserService) SetRole(ctx context.Context, actor *auth.Principal, userID uuid.UUID, role string) (*models.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, fmt.Errorf("set role: %w", models.ErrForbidden)
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("role %q: %w", role, models.ErrInvalidInput)
	}
	if actor.IsOwner(userID) {
		return nil, fmt.Errorf("cannot change your own role: %w", models.ErrForbidden)
	}
	u, err := us.users.UpdateUser(ctx, userID, map[string]any{"role": role})
	if err != nil {
		return nil, err
	}
	us.logger.Info("user role changed", "user_id", userID, "role", role, "by", actor.UserID)
	return u, nil
}
