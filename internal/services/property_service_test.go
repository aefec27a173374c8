package services

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

type fakeViews struct {
	models.PropertyViewsRepo
	mu      sync.Mutex
	count   bool
	tracked []*models.PropertyView
}

func (f *fakeViews) TrackPropertyView(ctx context.Context, view *models.PropertyView) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, view)
	return f.count, nil
}

func (f *fakeViews) GetPropertyViewStats(ctx context.Context, propertyID string, days int) (*models.PropertyViewStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.PropertyViewStats{
		PropertyID: propertyID,
		ViewStats:  models.ViewStats{TotalViews: int64(len(f.tracked)), WindowDays: days},
	}, nil
}

func (f *fakeViews) GetPropertyViewHistory(ctx context.Context, propertyID string, limit int) ([]*models.PropertyView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PropertyView
	for i := len(f.tracked) - 1; i >= 0 && len(out) < limit; i-- {
		if f.tracked[i].PropertyID == propertyID {
			out = append(out, f.tracked[i])
		}
	}
	return out, nil
}

func (f *fakeViews) GetAgentViewStats(ctx context.Context, agentID string, days int) (*models.AgentViewStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.AgentViewStats{AgentID: agentID, ViewStats: models.ViewStats{WindowDays: days}}
	seen := map[string]bool{}
	for _, v := range f.tracked {
		if v.AgentID != agentID {
			continue
		}
		stats.TotalViews++
		if !seen[v.PropertyID] {
			seen[v.PropertyID] = true
			stats.ViewedProperties++
		}
	}
	return stats, nil
}

func TestPropertyService_Create(t *testing.T) {
	repo := models.NewMemoryRepo()
	uploader := &fakeUploader{}
	svc := NewPropertyService(repo, nil, uploader, nil, nil, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)

	in := listingInput("Cottage", "Austin")
	in.ZipCode = ptr("78701")
	in.SquareFeet = ptr(1200)
	in.IsFeatured = ptr(true)
	in.Images = []models.ImageInput{
		{URL: "https://cdn.example.com/front.jpg"},
		{URL: "/tmp/back.jpg", Caption: "Back"},
	}

	p, err := svc.Create(context.Background(), agent, in)
	require.NoError(t, err)
	assert.Equal(t, agent.UserID, p.AgentID)
	assert.Equal(t, models.StatusActive, p.Status)
	assert.Equal(t, "78701", p.PostalCode)
	assert.Equal(t, 1200, p.AreaSqft)
	assert.False(t, p.IsFeatured, "only admins feature listings")

	require.Len(t, p.Images, 2)
	assert.True(t, p.Images[0].IsPrimary)
	assert.False(t, p.Images[1].IsPrimary)
	assert.Equal(t, "https://res.cloudinary.com/demo/tmp/back.jpg", p.Images[1].URL)
	assert.Equal(t, []string{helpers.PropertyFolder}, uploader.folders)
}

func TestPropertyService_CreateRejects(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, listingInput("Cottage", "Austin"))
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Create(ctx, agent, &models.PropertyInput{Title: ptr("No city")})
	assert.Error(t, err)

	in := listingInput("Cottage", "Austin")
	in.Images = []models.ImageInput{{URL: "local.jpg"}}
	_, err = svc.Create(ctx, agent, in)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	uploads := NewPropertyService(repo, nil, &fakeUploader{err: helpers.ErrUploadsDisabled}, nil, nil, testLogger())
	_, err = uploads.Create(ctx, agent, in)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPropertyService_UpdateRequiresOwner(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, stranger := newTestUser(t, repo, "stranger@example.com", models.RoleUser)
	_, admin := newTestUser(t, repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	p, err := svc.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, p.ID, &models.PropertyInput{Title: ptr("Mine now")})
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := svc.Update(ctx, agent, p.ID, &models.PropertyInput{
		Price:  ptr(199000.0),
		Images: []models.ImageInput{{URL: "https://cdn.example.com/ignored.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 199000.0, updated.Price)
	assert.Equal(t, "Cottage", updated.Title)
	assert.Empty(t, updated.Images)

	featured, err := svc.Update(ctx, admin, p.ID, &models.PropertyInput{IsFeatured: ptr(true)})
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)

	_, err = svc.Update(ctx, agent, p.ID, &models.PropertyInput{Status: ptr(models.StatusDeleted)})
	assert.Error(t, err)

	_, err = svc.Update(ctx, agent, uuid.New(), &models.PropertyInput{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPropertyService_SoftDeleteHidesListing(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, stranger := newTestUser(t, repo, "stranger@example.com", models.RoleUser)
	ctx := context.Background()

	p, err := svc.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, p.ID), models.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, agent, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, agent, p.ID), models.ErrNotFound)

	_, err = svc.Get(ctx, p.ID, stranger, ViewMeta{})
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Get(ctx, p.ID, nil, ViewMeta{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	own, err := svc.Get(ctx, p.ID, agent, ViewMeta{})
	require.NoError(t, err)
	assert.True(t, own.IsDeleted())

	props, total, err := svc.List(ctx, query.Default(query.ListingOptions))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, props)

	byAgent, total, err := svc.ListByAgent(ctx, agent.UserID, query.Default(query.ListingOptions))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, byAgent)
}

func TestPropertyService_GetTracksViews(t *testing.T) {
	repo := models.NewMemoryRepo()
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, viewer := newTestUser(t, repo, "viewer@example.com", models.RoleUser)
	ctx := context.Background()

	plain := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	p, err := plain.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)

	_, err = plain.Get(ctx, p.ID, nil, ViewMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	_, err = plain.Get(ctx, p.ID, agent, ViewMeta{})
	require.NoError(t, err)
	plain.Wait()

	got, _ := repo.GetProperty(ctx, p.ID)
	assert.Equal(t, int64(1), got.ViewCount, "owner views are not counted")

	views := &fakeViews{count: false}
	deduped := NewPropertyService(repo, views, nil, nil, nil, testLogger())
	_, err = deduped.Get(ctx, p.ID, viewer, ViewMeta{UserAgent: "test"})
	require.NoError(t, err)
	deduped.Wait()

	got, _ = repo.GetProperty(ctx, p.ID)
	assert.Equal(t, int64(1), got.ViewCount, "duplicate views are not counted")
	require.Len(t, views.tracked, 1)
	assert.Equal(t, viewer.UserID.String(), *views.tracked[0].UserID)
	assert.Equal(t, viewer.UserID.String(), views.tracked[0].SessionID)
	assert.Equal(t, agent.UserID.String(), views.tracked[0].AgentID)

	views.count = true
	_, err = deduped.Get(ctx, p.ID, nil, ViewMeta{SessionID: "anon"})
	require.NoError(t, err)
	deduped.Wait()
	got, _ = repo.GetProperty(ctx, p.ID)
	assert.Equal(t, int64(2), got.ViewCount)
}

func TestPropertyService_Images(t *testing.T) {
	repo := models.NewMemoryRepo()
	svc := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, stranger := newTestUser(t, repo, "stranger@example.com", models.RoleUser)
	ctx := context.Background()

	p, err := svc.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)

	_, err = svc.AddImages(ctx, agent, p.ID, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = svc.AddImages(ctx, stranger, p.ID, []models.ImageInput{{URL: "https://cdn.example.com/1.jpg"}})
	assert.ErrorIs(t, err, models.ErrForbidden)

	first, err := svc.AddImages(ctx, agent, p.ID, []models.ImageInput{
		{URL: "https://cdn.example.com/1.jpg"},
		{URL: "https://cdn.example.com/2.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, first[0].IsPrimary)

	more, err := svc.AddImages(ctx, agent, p.ID, []models.ImageInput{{URL: "https://cdn.example.com/3.jpg"}})
	require.NoError(t, err)
	assert.False(t, more[0].IsPrimary)
	assert.Equal(t, 2, more[0].Order)

	require.NoError(t, svc.SetPrimaryImage(ctx, agent, p.ID, more[0].ID))
	got, _ := repo.GetProperty(ctx, p.ID)
	assert.Equal(t, more[0].ID, got.PrimaryImage().ID)

	assert.ErrorIs(t, svc.DeleteImage(ctx, stranger, p.ID, first[1].ID), models.ErrForbidden)
	require.NoError(t, svc.DeleteImage(ctx, agent, p.ID, first[1].ID))
	got, _ = repo.GetProperty(ctx, p.ID)
	assert.Len(t, got.Images, 2)
}

func TestPropertyService_Stats(t *testing.T) {
	repo := models.NewMemoryRepo()
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, stranger := newTestUser(t, repo, "stranger@example.com", models.RoleUser)
	ctx := context.Background()

	withoutViews := NewPropertyService(repo, nil, nil, nil, nil, testLogger())
	p, err := withoutViews.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)
	_, err = withoutViews.Stats(ctx, agent, p.ID, 0, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	views := &fakeViews{count: true}
	svc := NewPropertyService(repo, views, nil, nil, nil, testLogger())
	_, err = svc.Stats(ctx, stranger, p.ID, 0, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	for _, sid := range []string{"s1", "s2", "s3"} {
		_, err := svc.Get(ctx, p.ID, nil, ViewMeta{SessionID: sid})
		require.NoError(t, err)
		svc.Wait()
	}

	stats, err := svc.Stats(ctx, agent, p.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stats.PropertyID)
	assert.Equal(t, DefaultStatsDays, stats.Views.WindowDays)
	assert.Nil(t, stats.Recent)

	stats, err = svc.Stats(ctx, agent, p.ID, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Views.WindowDays)
	require.Len(t, stats.Recent, 2)
	assert.Equal(t, "s3", stats.Recent[0].SessionID)
}

func TestPropertyService_AgentStats(t *testing.T) {
	repo := models.NewMemoryRepo()
	_, agent := newTestUser(t, repo, "agent@example.com", models.RoleUser)
	_, stranger := newTestUser(t, repo, "stranger@example.com", models.RoleUser)
	_, admin := newTestUser(t, repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	_, err := NewPropertyService(repo, nil, nil, nil, nil, testLogger()).AgentStats(ctx, agent, agent.UserID, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	svc := NewPropertyService(repo, &fakeViews{count: true}, nil, nil, nil, testLogger())
	first, err := svc.Create(ctx, agent, listingInput("Cottage", "Austin"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, agent, listingInput("Loft", "Austin"))
	require.NoError(t, err)
	for _, id := range []uuid.UUID{first.ID, first.ID, second.ID} {
		_, err := svc.Get(ctx, id, stranger, ViewMeta{})
		require.NoError(t, err)
	}
	svc.Wait()

	_, err = svc.AgentStats(ctx, stranger, agent.UserID, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.AgentStats(ctx, nil, agent.UserID, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	for _, actor := range []*auth.Principal{agent, admin} {
		stats, err := svc.AgentStats(ctx, actor, agent.UserID, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalViews)
		assert.Equal(t, int64(2), stats.ViewedProperties)
		assert.Equal(t, DefaultStatsDays, stats.WindowDays)
	}
}

func TestPropertyService_FeaturedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := models.NewMemoryRepo()
	svc := NewPropertyService(repo, nil, nil, rdb, nil, testLogger())
	_, admin := newTestUser(t, repo, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	in := listingInput("Villa", "Miami")
	in.IsFeatured = ptr(true)
	_, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, listingInput("Plain", "Miami"))
	require.NoError(t, err)

	featured, err := svc.Featured(ctx, 6)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.True(t, mr.Exists(featuredCacheKey+":6"))

	in = listingInput("Penthouse", "Miami")
	in.IsFeatured = ptr(true)
	_, err = svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.False(t, mr.Exists(featuredCacheKey+":6"))

	featured, err = svc.Featured(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, featured, 2)
}
