package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/query"
)

// MemoryRepo keeps every entity in process memory. It backs the "memory"
// storage backend and the service and handler tests.
type MemoryRepo struct {
	mu         sync.RWMutex
	properties map[uuid.UUID]*Property
	users      map[uuid.UUID]*User
	sessions   map[string]*Session
	waitlist   map[string]*WaitlistEntry
	saved      map[uuid.UUID]map[uuid.UUID]SavedItem
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		properties: make(map[uuid.UUID]*Property),
		users:      make(map[uuid.UUID]*User),
		sessions:   make(map[string]*Session),
		waitlist:   make(map[string]*WaitlistEntry),
		saved:      make(map[uuid.UUID]map[uuid.UUID]SavedItem),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func cloneProperty(p *Property) *Property {
	cp := *p
	cp.Images = append([]PropertyImage(nil), p.Images...)
	return &cp
}

func (m *MemoryRepo) ListProperties(ctx context.Context, d query.Descriptor) ([]*Property, int, error) {
	m.mu.RLock()
	all := make([]*Property, 0, len(m.properties))
	for _, p := range m.properties {
		all = append(all, cloneProperty(p))
	}
	m.mu.RUnlock()

	page, total := query.Apply(d, all)
	return page, total, nil
}

func (m *MemoryRepo) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("get property: %w", ErrNotFound)
	}
	return cloneProperty(p), nil
}

func (m *MemoryRepo) CreateProperty(ctx context.Context, p *Property) (*Property, error) {
	p.prepare()
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	for i := range p.Images {
		if p.Images[i].ID == uuid.Nil {
			p.Images[i].ID = uuid.New()
		}
		if p.Images[i].CreatedAt.IsZero() {
			p.Images[i].CreatedAt = now
		}
	}
	p.SortImages()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.properties[p.ID]; exists {
		return nil, fmt.Errorf("create property: %w", ErrAlreadyExists)
	}
	m.properties[p.ID] = cloneProperty(p)
	return cloneProperty(p), nil
}

func (m *MemoryRepo) UpdateProperty(ctx context.Context, p *Property) (*Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.properties[p.ID]
	if !ok {
		return nil, fmt.Errorf("update property: %w", ErrNotFound)
	}
	next := cloneProperty(p)
	next.AgentID = cur.AgentID
	next.CreatedAt = cur.CreatedAt
	next.ViewCount = cur.ViewCount
	next.Images = cur.Images
	next.UpdatedAt = m.now()
	m.properties[p.ID] = next
	return cloneProperty(next), nil
}

func (m *MemoryRepo) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok || p.IsDeleted() {
		return fmt.Errorf("delete property: %w", ErrNotFound)
	}
	p.Status = StatusDeleted
	p.UpdatedAt = m.now()
	return nil
}

func (m *MemoryRepo) AddImages(ctx context.Context, propertyID uuid.UUID, images []PropertyImage) ([]PropertyImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[propertyID]
	if !ok {
		return nil, fmt.Errorf("add images: %w", ErrInvalidInput)
	}
	if hasPrimary(images) {
		for i := range p.Images {
			p.Images[i].IsPrimary = false
		}
	}
	now := m.now()
	for i := range images {
		if images[i].ID == uuid.Nil {
			images[i].ID = uuid.New()
		}
		images[i].PropertyID = propertyID
		images[i].CreatedAt = now
	}
	p.Images = append(p.Images, images...)
	p.SortImages()
	return images, nil
}

func (m *MemoryRepo) DeleteImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[propertyID]
	if !ok {
		return fmt.Errorf("delete image: %w", ErrNotFound)
	}
	for i := range p.Images {
		if p.Images[i].ID == imageID {
			p.Images = append(p.Images[:i], p.Images[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete image: %w", ErrNotFound)
}

func (m *MemoryRepo) SetPrimaryImage(ctx context.Context, propertyID, imageID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[propertyID]
	if !ok {
		return fmt.Errorf("set primary image: %w", ErrNotFound)
	}
	found := false
	for i := range p.Images {
		if p.Images[i].ID == imageID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("set primary image: %w", ErrNotFound)
	}
	for i := range p.Images {
		p.Images[i].IsPrimary = p.Images[i].ID == imageID
	}
	return nil
}

func (m *MemoryRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return fmt.Errorf("increment view count: %w", ErrNotFound)
	}
	p.ViewCount++
	return nil
}

func (m *MemoryRepo) CitySuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(query.SanitizeTerm(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	m.mu.RLock()
	seen := make(map[string]string)
	for _, p := range m.properties {
		if p.IsDeleted() || p.City == "" {
			continue
		}
		key := strings.ToLower(p.City)
		if strings.HasPrefix(key, prefix) {
			if _, ok := seen[key]; !ok {
				seen[key] = p.City
			}
		}
	}
	m.mu.RUnlock()

	cities := make([]string, 0, len(seen))
	for _, c := range seen {
		cities = append(cities, c)
	}
	sort.Strings(cities)
	if len(cities) > limit {
		cities = cities[:limit]
	}
	return cities, nil
}
