package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUser(t *testing.T, repo *models.MemoryRepo, email, role string) (*models.User, *auth.Principal) {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), &models.User{Email: email, Role: role})
	require.NoError(t, err)
	return u, &auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role, Strategy: auth.StrategyBearer, User: u}
}

func ptr[T any](v T) *T { return &v }

func listingInput(title, city string) *models.PropertyInput {
	return &models.PropertyInput{
		Title:        ptr(title),
		City:         ptr(city),
		Price:        ptr(250000.0),
		PropertyType: ptr("house"),
		ListingType:  ptr("sale"),
	}
}

type fakeUploader struct {
	mu      sync.Mutex
	folders []string
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, src, folder string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.folders = append(f.folders, folder)
	return "https://res.cloudinary.com/demo/" + strings.TrimPrefix(src, "/"), nil
}
