package models

import (
	"context"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/query"
)

// PropertyRepo is implemented by every storage backend. Implementations
// must agree with query.Apply on filtering, ordering and paging.
type PropertyRepo interface {
	ListProperties(ctx context.Context, d query.Descriptor) ([]*Property, int, error)
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	CreateProperty(ctx context.Context, p *Property) (*Property, error)
	UpdateProperty(ctx context.Context, p *Property) (*Property, error)
	DeleteProperty(ctx context.Context, id uuid.UUID) error
	AddImages(ctx context.Context, propertyID uuid.UUID, images []PropertyImage) ([]PropertyImage, error)
	DeleteImage(ctx context.Context, propertyID, imageID uuid.UUID) error
	SetPrimaryImage(ctx context.Context, propertyID, imageID uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	CitySuggestions(ctx context.Context, prefix string, limit int) ([]string, error)
}

var (
	_ PropertyRepo = (*GormRepo)(nil)
	_ PropertyRepo = (*SupabaseRepo)(nil)
	_ PropertyRepo = (*MemoryRepo)(nil)
)
