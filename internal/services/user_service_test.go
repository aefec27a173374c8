package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

func TestUserService_UpdateProfile(t *testing.T) {
	repo := models.NewMemoryRepo()
	uploader := &fakeUploader{}
	svc := NewUserService(repo, uploader, testLogger())
	u, _ := newTestUser(t, repo, "ama@example.com", models.RoleUser)
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, u.ID, ProfileInput{
		FirstName:   ptr(" Ama "),
		Phone:       ptr("+233200000000"),
		AvatarURL:   ptr("avatars/me.png"),
		Preferences: models.JSONMap{"currency": "GHS"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ama", updated.FirstName)
	assert.Equal(t, "+233200000000", updated.Phone)
	assert.Equal(t, "https://res.cloudinary.com/demo/avatars/me.png", updated.AvatarURL)
	assert.Equal(t, "GHS", updated.Preferences["currency"])
	assert.Equal(t, []string{helpers.AvatarFolder}, uploader.folders)

	unchanged, err := svc.UpdateProfile(ctx, u.ID, ProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Ama", unchanged.FirstName)

	noUploads := NewUserService(repo, nil, testLogger())
	_, err = noUploads.UpdateProfile(ctx, u.ID, ProfileInput{AvatarURL: ptr("me.png")})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	remote, err := noUploads.UpdateProfile(ctx, u.ID, ProfileInput{AvatarURL: ptr("https://cdn.example.com/me.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/me.png", remote.AvatarURL)
}

func TestUserService_SearchHistory(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewUserService(repo, nil, testLogger())
	u, _ := newTestUser(t, repo, "ama@example.com", models.RoleUser)
	ctx := context.Background()

	history, err := svc.SearchHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = repo.UpdateUser(ctx, u.ID, map[string]any{
		"search_history": models.SearchHistory{{Query: "loft", SearchedAt: time.Now()}},
	})
	require.NoError(t, err)
	history, err = svc.SearchHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, svc.ClearSearchHistory(ctx, u.ID))
	history, err = svc.SearchHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUserService_SetRole(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewUserService(repo, nil, testLogger())
	target, member := newTestUser(t, repo, "ama@example.com", models.RoleUser)
	_, admin := newTestUser(t, repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	_, err := svc.SetRole(ctx, member, target.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.SetRole(ctx, admin, target.ID, "superuser")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.SetRole(ctx, admin, admin.UserID, models.RoleUser)
	assert.ErrorIs(t, err, models.ErrForbidden)

	promoted, err := svc.SetRole(ctx, admin, target.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = svc.SetRole(ctx, admin, uuid.New(), models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewUserService(repo, nil, testLogger())
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		newTestUser(t, repo, email, models.RoleUser)
	}

	users, total, err := svc.ListUsers(context.Background(), query.Page{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 1)
}
