package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/models"
)

type SavedProperty struct {
	Property *models.Property `json:"property"`
	Note     string           `json:"note,omitempty"`
	SavedAt  time.Time        `json:"saved_at"`
}

type SavedService struct {
	saved      models.SavedRepo
	properties models.PropertyRepo
	logger     *slog.Logger
}

func NewSavedService(saved models.SavedRepo, properties models.PropertyRepo, logger *slog.Logger) *SavedService {
	return &SavedService{saved: saved, properties: properties, logger: logger}
}

func (ss *SavedService) Save(ctx context.Context, userID, propertyID uuid.UUID, note string) (*models.SavedItem, error) {
	p, err := ss.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, fmt.Errorf("save property %s: %w", propertyID, models.ErrNotFound)
	}
	return ss.saved.SaveProperty(ctx, userID, propertyID, note)
}

func (ss *SavedService) Unsave(ctx context.Context, userID, propertyID uuid.UUID) error {
	return ss.saved.UnsaveProperty(ctx, userID, propertyID)
}

// List returns saved listings newest first. Listings since deleted are left out.
func (ss *SavedService) List(ctx context.Context, userID uuid.UUID) ([]SavedProperty, error) {
	items, err := ss.saved.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SavedProperty, 0, len(items))
	for _, item := range items {
		p, err := ss.properties.GetProperty(ctx, item.PropertyID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.IsDeleted() {
			continue
		}
		out = append(out, SavedProperty{Property: p, Note: item.Note, SavedAt: item.AddedAt})
	}
	return out, nil
}
