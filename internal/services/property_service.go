package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/helpers"
	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
)

const (
	featuredCacheKey = "homeswift:properties:featured"
	featuredCacheTTL = 5 * time.Minute
	viewTrackTimeout = 5 * time.Second
	DefaultStatsDays = 30
	MaxViewHistory   = 100
)

type ImageUploader interface {
	Upload(ctx context.Context, src, folder string) (string, error)
}

// ViewMeta identifies the viewer of a listing for view tracking.
type ViewMeta struct {
	SessionID string
	IP        string
	UserAgent string
}

type PropertyStats struct {
	PropertyID uuid.UUID                 `json:"property_id"`
	ViewCount  int64                     `json:"view_count"`
	Views      *models.PropertyViewStats `json:"views"`
	Recent     []*models.PropertyView    `json:"recent_views,omitempty"`
}

type PropertyService struct {
	repo     models.PropertyRepo
	views    models.PropertyViewsRepo
	uploader ImageUploader
	cache    *redis.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracking sync.WaitGroup
}

// NewPropertyService takes optional views, uploader and cache; nil
// disables view stats, file uploads and featured caching respectively.
func NewPropertyService(repo models.PropertyRepo, views models.PropertyViewsRepo, uploader ImageUploader, cache *redis.Client, m *metrics.Metrics, logger *slog.Logger) *PropertyService {
	return &PropertyService{
		repo:     repo,
		views:    views,
		uploader: uploader,
		cache:    cache,
		metrics:  m,
		logger:   logger,
	}
}

func (ps *PropertyService) List(ctx context.Context, d query.Descriptor) ([]*models.Property, int, error) {
	return ps.repo.ListProperties(ctx, visibleOnly(d))
}

// Featured returns active featured listings, newest first, served from
// Redis when possible.
func (ps *PropertyService) Featured(ctx context.Context, limit int) ([]*models.Property, error) {
	d := query.Default(query.ListingOptions)
	if limit > 0 {
		d.Page.Limit = min(limit, query.ListingOptions.MaxLimit)
	}
	key := featuredCacheKey + ":" + strconv.Itoa(d.Page.Limit)

	if ps.cache != nil {
		raw, err := ps.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached []*models.Property
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			ps.logger.Warn("featured cache read failed", "error", err)
		}
	}

	d = d.With(
		query.Predicate{Field: query.FieldIsFeatured, Op: query.OpEq, Value: true},
		query.Predicate{Field: query.FieldStatus, Op: query.OpEq, Value: models.StatusActive},
	)
	props, _, err := ps.repo.ListProperties(ctx, d)
	if err != nil {
		return nil, err
	}

	if ps.cache != nil {
		if raw, err := json.Marshal(props); err == nil {
			if err := ps.cache.Set(ctx, key, raw, featuredCacheTTL).Err(); err != nil {
				ps.logger.Warn("featured cache write failed", "error", err)
			}
		}
	}
	return props, nil
}

func (ps *PropertyService) invalidateFeatured(ctx context.Context) {
	if ps.cache == nil {
		return
	}
	keys, err := ps.cache.Keys(ctx, featuredCacheKey+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := ps.cache.Del(ctx, keys...).Err(); err != nil {
		ps.logger.Warn("featured cache invalidation failed", "error", err)
	}
}

// Get returns a listing. Deleted listings are visible only to their agent
// and admins. Views by anyone else are tracked in the background.
func (ps *PropertyService) Get(ctx context.Context, id uuid.UUID, viewer *auth.Principal, meta ViewMeta) (*models.Property, error) {
	p, err := ps.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := canManage(viewer, p)
	if p.IsDeleted() && !owner {
		return nil, fmt.Errorf("get property %s: %w", id, models.ErrNotFound)
	}
	if !owner && !p.IsDeleted() {
		ps.trackView(p, viewer, meta)
	}
	return p, nil
}

func (ps *PropertyService) trackView(p *models.Property, viewer *auth.Principal, meta ViewMeta) {
	view := &models.PropertyView{
		PropertyID: p.ID.String(),
		AgentID:    p.AgentID.String(),
		SessionID:  meta.SessionID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if viewer != nil {
		uid := viewer.UserID.String()
		view.UserID = &uid
		if view.SessionID == "" {
			view.SessionID = uid
		}
	}
	if view.SessionID == "" {
		view.SessionID = meta.IP
	}

	ps.tracking.Add(1)
	go func() {
		defer ps.tracking.Done()
		ctx, cancel := context.WithTimeout(context.Background(), viewTrackTimeout)
		defer cancel()

		counted := true
		if ps.views != nil {
			stored, err := ps.views.TrackPropertyView(ctx, view)
			if err != nil {
				ps.logger.Warn("view tracking failed", "property_id", view.PropertyID, "error", err)
				return
			}
			counted = stored
		}
		if !counted {
			return
		}
		if err := ps.repo.IncrementViewCount(ctx, p.ID); err != nil {
			ps.logger.Warn("view count increment failed", "property_id", view.PropertyID, "error", err)
			return
		}
		ps.metrics.RecordPropertyView()
	}()
}

// Wait blocks until background view tracking has finished.
func (ps *PropertyService) Wait() {
	ps.tracking.Wait()
}

func (ps *PropertyService) buildImages(ctx context.Context, inputs []models.ImageInput, start int, makePrimary bool) ([]models.PropertyImage, error) {
	images := make([]models.PropertyImage, 0, len(inputs))
	for i, in := range inputs {
		url := in.URL
		if !helpers.IsRemoteURL(url) {
			if ps.uploader == nil {
				return nil, fmt.Errorf("image %d must be an http(s) URL: %w", i, models.ErrInvalidInput)
			}
			uploaded, err := ps.uploader.Upload(ctx, url, helpers.PropertyFolder)
			if errors.Is(err, helpers.ErrUploadsDisabled) {
				return nil, fmt.Errorf("image %d must be an http(s) URL: %w", i, models.ErrInvalidInput)
			}
			if err != nil {
				return nil, err
			}
			url = uploaded
		}
		images = append(images, models.PropertyImage{
			URL:       url,
			Caption:   in.Caption,
			Order:     start + i,
			IsPrimary: makePrimary && i == 0,
		})
	}
	return images, nil
}

func (ps *PropertyService) Create(ctx context.Context, agent *auth.Principal, in *models.PropertyInput) (*models.Property, error) {
	if agent == nil {
		return nil, fmt.Errorf("create property: %w", models.ErrForbidden)
	}
	if err := models.Validate.Struct(in); err != nil {
		return nil, err
	}
	p := &models.Property{AgentID: agent.UserID, Status: models.StatusActive}
	in.ApplyTo(p)
	if !agent.IsAdmin() {
		p.IsFeatured = false
	}
	if err := models.Validate.Struct(p); err != nil {
		return nil, err
	}

	images, err := ps.buildImages(ctx, in.Images, 0, true)
	if err != nil {
		return nil, err
	}
	p.Images = images

	created, err := ps.repo.CreateProperty(ctx, p)
	if err != nil {
		return nil, err
	}
	ps.metrics.RecordPropertyOperation("create")
	if created.IsFeatured {
		ps.invalidateFeatured(ctx)
	}
	return created, nil
}

// Update applies a partial update. Images are managed through their own
// operations and are ignored here.
func (ps *PropertyService) Update(ctx context.Context, actor *auth.Principal, id uuid.UUID, in *models.PropertyInput) (*models.Property, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, err
	}
	p, err := ps.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasFeatured := p.IsFeatured
	in.Images = nil
	in.ApplyTo(p)
	if !actor.IsAdmin() {
		p.IsFeatured = wasFeatured
	}
	if err := models.Validate.Struct(p); err != nil {
		return nil, err
	}
	updated, err := ps.repo.UpdateProperty(ctx, p)
	if err != nil {
		return nil, err
	}
	ps.metrics.RecordPropertyOperation("update")
	if wasFeatured || updated.IsFeatured {
		ps.invalidateFeatured(ctx)
	}
	return updated, nil
}

func (ps *PropertyService) Delete(ctx context.Context, actor *auth.Principal, id uuid.UUID) error {
	p, err := ps.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := ps.repo.DeleteProperty(ctx, id); err != nil {
		return err
	}
	ps.metrics.RecordPropertyOperation("delete")
	if p.IsFeatured {
		ps.invalidateFeatured(ctx)
	}
	return nil
}

// manageable loads a live listing the actor may change.
func (ps *PropertyService) manageable(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*models.Property, error) {
	p, err := ps.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, fmt.Errorf("property %s: %w", id, models.ErrNotFound)
	}
	if err := requireManage(actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddImages appends images; the first image a listing receives becomes primary.
func (ps *PropertyService) AddImages(ctx context.Context, actor *auth.Principal, id uuid.UUID, inputs []models.ImageInput) ([]models.PropertyImage, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no images: %w", models.ErrInvalidInput)
	}
	for i := range inputs {
		if err := models.Validate.Struct(inputs[i]); err != nil {
			return nil, err
		}
	}
	p, err := ps.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	start := 0
	for _, img := range p.Images {
		start = max(start, img.Order+1)
	}
	images, err := ps.buildImages(ctx, inputs, start, p.PrimaryImage() == nil)
	if err != nil {
		return nil, err
	}
	added, err := ps.repo.AddImages(ctx, id, images)
	if err != nil {
		return nil, err
	}
	ps.metrics.RecordPropertyOperation("add_images")
	return added, nil
}

func (ps *PropertyService) DeleteImage(ctx context.Context, actor *auth.Principal, id, imageID uuid.UUID) error {
	if _, err := ps.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := ps.repo.DeleteImage(ctx, id, imageID); err != nil {
		return err
	}
	ps.metrics.RecordPropertyOperation("delete_image")
	return nil
}

func (ps *PropertyService) SetPrimaryImage(ctx context.Context, actor *auth.Principal, id, imageID uuid.UUID) error {
	if _, err := ps.manageable(ctx, actor, id); err != nil {
		return err
	}
	return ps.repo.SetPrimaryImage(ctx, id, imageID)
}

// Stats reports view analytics for a listing. history > 0 also returns up
// to that many of the latest individual views.
func (ps *PropertyService) Stats(ctx context.Context, actor *auth.Principal, id uuid.UUID, days, history int) (*PropertyStats, error) {
	p, err := ps.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireManage(actor, p); err != nil {
		return nil, err
	}
	if ps.views == nil {
		return nil, fmt.Errorf("view stats: %w", ErrUnavailable)
	}
	if days <= 0 {
		days = DefaultStatsDays
	}
	views, err := ps.views.GetPropertyViewStats(ctx, id.String(), days)
	if err != nil {
		return nil, err
	}
	stats := &PropertyStats{PropertyID: p.ID, ViewCount: p.ViewCount, Views: views}
	if history > 0 {
		stats.Recent, err = ps.views.GetPropertyViewHistory(ctx, id.String(), min(history, MaxViewHistory))
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// AgentStats aggregates views over every listing of one agent. Agents see
// their own numbers; admins see anyone's.
func (ps *PropertyService) AgentStats(ctx context.Context, actor *auth.Principal, agentID uuid.UUID, days int) (*models.AgentViewStats, error) {
	if actor == nil || (!actor.IsAdmin() && !actor.IsOwner(agentID)) {
		return nil, fmt.Errorf("agent stats %s: %w", agentID, models.ErrForbidden)
	}
	if ps.views == nil {
		return nil, fmt.Errorf("view stats: %w", ErrUnavailable)
	}
	if days <= 0 {
		days = DefaultStatsDays
	}
	return ps.views.GetAgentViewStats(ctx, agentID.String(), days)
}

// ListByAgent lists one agent's visible listings.
func (ps *PropertyService) ListByAgent(ctx context.Context, agentID uuid.UUID, d query.Descriptor) ([]*models.Property, int, error) {
	d = d.With(query.Predicate{Field: query.FieldAgentID, Op: query.OpEq, Value: agentID.String()})
	return ps.repo.ListProperties(ctx, visibleOnly(d))
}
