package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/joshua-takyi/homeswift/internal/query"
)

type WaitlistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email" validate:"required,email"`
	Name      string    `gorm:"size:200" json:"name,omitempty" validate:"max=200"`
	Source    string    `gorm:"size:100" json:"source,omitempty" validate:"max=100"`
	CreatedAt time.Time `json:"created_at"`
}

func (WaitlistEntry) TableName() string { return WaitlistTable }

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.Email = NormalizeEmail(w.Email)
	return nil
}

type WaitlistRepo interface {
	AddToWaitlist(ctx context.Context, w *WaitlistEntry) (*WaitlistEntry, error)
	CountWaitlist(ctx context.Context) (int, error)
	ListWaitlist(ctx context.Context, page query.Page) ([]*WaitlistEntry, int, error)
}

var (
	_ WaitlistRepo = (*GormRepo)(nil)
	_ WaitlistRepo = (*MemoryRepo)(nil)
)

func (g *GormRepo) AddToWaitlist(ctx context.Context, w *WaitlistEntry) (*WaitlistEntry, error) {
	if err := g.db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, MapDBError("join waitlist", err)
	}
	return w, nil
}

func (g *GormRepo) CountWaitlist(ctx context.Context) (int, error) {
	var n int64
	if err := g.db.WithContext(ctx).Model(&WaitlistEntry{}).Count(&n).Error; err != nil {
		return 0, MapDBError("count waitlist", err)
	}
	return int(n), nil
}

func (g *GormRepo) ListWaitlist(ctx context.Context, page query.Page) ([]*WaitlistEntry, int, error) {
	total, err := g.CountWaitlist(ctx)
	if err != nil {
		return nil, 0, err
	}
	var entries []*WaitlistEntry
	err = g.db.WithContext(ctx).
		Order("created_at DESC").Order("id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, MapDBError("list waitlist", err)
	}
	return entries, total, nil
}

func (m *MemoryRepo) AddToWaitlist(ctx context.Context, w *WaitlistEntry) (*WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.Email = NormalizeEmail(w.Email)
	if _, exists := m.waitlist[w.Email]; exists {
		return nil, fmt.Errorf("join waitlist: %w", ErrAlreadyExists)
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = m.now()
	cp := *w
	m.waitlist[w.Email] = &cp
	return w, nil
}

func (m *MemoryRepo) CountWaitlist(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.waitlist), nil
}

func (m *MemoryRepo) ListWaitlist(ctx context.Context, page query.Page) ([]*WaitlistEntry, int, error) {
	m.mu.RLock()
	entries := make([]*WaitlistEntry, 0, len(m.waitlist))
	for _, w := range m.waitlist {
		cp := *w
		entries = append(entries, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	total := len(entries)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return entries[start:end], total, nil
}
