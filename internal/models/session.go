package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	SID       string    `gorm:"column:sid;primaryKey;size:64" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `gorm:"column:ip;size:64" json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string { return SessionsTable }

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, sid string) (*Session, error)
	DeleteSession(ctx context.Context, sid string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ SessionRepo = (*GormRepo)(nil)
	_ SessionRepo = (*MemoryRepo)(nil)
)

func (g *GormRepo) CreateSession(ctx context.Context, s *Session) error {
	return MapDBError("create session", g.db.WithContext(ctx).Create(s).Error)
}

func (g *GormRepo) GetSession(ctx context.Context, sid string) (*Session, error) {
	var s Session
	if err := g.db.WithContext(ctx).Where("sid = ?", sid).First(&s).Error; err != nil {
		return nil, MapDBError("get session", err)
	}
	return &s, nil
}

func (g *GormRepo) DeleteSession(ctx context.Context, sid string) error {
	return MapDBError("delete session", g.db.WithContext(ctx).Where("sid = ?", sid).Delete(&Session{}).Error)
}

func (g *GormRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	return MapDBError("delete user sessions", g.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Session{}).Error)
}

func (g *GormRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Session{})
	return res.RowsAffected, MapDBError("delete expired sessions", res.Error)
}

func (m *MemoryRepo) CreateSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.SID]; exists {
		return fmt.Errorf("create session: %w", ErrAlreadyExists)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	cp := *s
	m.sessions[s.SID] = &cp
	return nil
}

func (m *MemoryRepo) GetSession(ctx context.Context, sid string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("get session: %w", ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepo) DeleteSession(ctx context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}

func (m *MemoryRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, sid)
		}
	}
	return nil
}

func (m *MemoryRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for sid, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n, nil
}
