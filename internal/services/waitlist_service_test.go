package services

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

func TestWaitlistService(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewWaitlistService(repo, testLogger())
	ctx := context.Background()

	entry, err := svc.Join(ctx, WaitlistInput{Email: " Kofi@Example.com", Name: " Kofi ", Source: "landing"})
	require.NoError(t, err)
	assert.Equal(t, "kofi@example.com", entry.Email)
	assert.Equal(t, "Kofi", entry.Name)

	_, err = svc.Join(ctx, WaitlistInput{Email: "KOFI@example.com"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	_, err = svc.Join(ctx, WaitlistInput{Email: "nope"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = svc.Join(ctx, WaitlistInput{Email: "esi@example.com"})
	require.NoError(t, err)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, total, err := svc.List(ctx, query.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, entries, 2)
}
