package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/models"
)

func TestSavedService(t *testing.T) {
	repo := models.NewMemoryRepo()
	props := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	svc := NewSavedService(repo, repo, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	u, _ := newTestUser(t, repo, "buyer@example.com", models.RoleUser)
	ctx := context.Background()

	keep, err := props.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)
	drop, err := props.Create(ctx, agent, listingInput("Loft", "Austin"))
	require.NoError(t, err)

	item, err := svc.Save(ctx, u.ID, keep.ID, "near school")
	require.NoError(t, err)
	assert.Equal(t, keep.ID, item.PropertyID)
	_, err = svc.Save(ctx, u.ID, drop.ID, "")
	require.NoError(t, err)

	_, err = svc.Save(ctx, u.ID, uuid.New(), "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, props.Delete(ctx, agent, drop.ID))
	_, err = svc.Save(ctx, u.ID, drop.ID, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	saved, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, keep.ID, saved[0].Property.ID)
	assert.Equal(t, "near school", saved[0].Note)

	require.NoError(t, svc.Unsave(ctx, u.ID, keep.ID))
	assert.ErrorIs(t, svc.Unsave(ctx, u.ID, keep.ID), models.ErrNotFound)
}
