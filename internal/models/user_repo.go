package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/query"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) (*User, error)
	ListUsers(ctx context.Context, page query.Page) ([]*User, int, error)
}

var (
	_ UserRepo = (*GormRepo)(nil)
	_ UserRepo = (*MemoryRepo)(nil)
)

func (g *GormRepo) CreateUser(ctx context.Context, u *User) (*User, error) {
	if err := g.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, MapDBError("create user", err)
	}
	return u, nil
}

func (g *GormRepo) getUserWhere(ctx context.Context, op, cond string, arg any) (*User, error) {
	var u User
	if err := g.db.WithContext(ctx).Where(cond, arg).First(&u).Error; err != nil {
		return nil, MapDBError(op, err)
	}
	return &u, nil
}

func (g *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return g.getUserWhere(ctx, "get user", "id = ?", id)
}

func (g *GormRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return g.getUserWhere(ctx, "get user by email", "email = ?", NormalizeEmail(email))
}

func (g *GormRepo) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return g.getUserWhere(ctx, "get user by external id", "external_id = ?", externalID)
}

func (g *GormRepo) GetUserByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	return g.getUserWhere(ctx, "get user by reset token", "reset_token = ?", tokenHash)
}

func (g *GormRepo) GetUserByVerificationToken(ctx context.Context, token string) (*User, error) {
	return g.getUserWhere(ctx, "get user by verification token", "verification_token = ?", token)
}

// UpdateUser applies column updates; keys are column names.
func (g *GormRepo) UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) (*User, error) {
	if email, ok := updates["email"].(string); ok {
		updates["email"] = NormalizeEmail(email)
	}
	res := g.db.WithContext(ctx).Model(&User{ID: id}).Updates(updates)
	if res.Error != nil {
		return nil, MapDBError("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update user: %w", ErrNotFound)
	}
	return g.GetUserByID(ctx, id)
}

func (g *GormRepo) ListUsers(ctx context.Context, page query.Page) ([]*User, int, error) {
	var total int64
	if err := g.db.WithContext(ctx).Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, MapDBError("count users", err)
	}
	var users []*User
	err := g.db.WithContext(ctx).
		Order("created_at DESC").Order("id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, MapDBError("list users", err)
	}
	return users, int(total), nil
}

func (m *MemoryRepo) CreateUser(ctx context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.AuthProvider == "" {
		u.AuthProvider = ProviderLocal
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("create user: %w: email", ErrAlreadyExists)
		}
		if u.ExternalID != nil && existing.ExternalID != nil && *existing.ExternalID == *u.ExternalID {
			return nil, fmt.Errorf("create user: %w: external_id", ErrAlreadyExists)
		}
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	return u, nil
}

func (m *MemoryRepo) findUser(op string, match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
}

func (m *MemoryRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return m.findUser("get user", func(u *User) bool { return u.ID == id })
}

func (m *MemoryRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	return m.findUser("get user by email", func(u *User) bool { return u.Email == email })
}

func (m *MemoryRepo) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return m.findUser("get user by external id", func(u *User) bool {
		return u.ExternalID != nil && *u.ExternalID == externalID
	})
}

func (m *MemoryRepo) GetUserByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	return m.findUser("get user by reset token", func(u *User) bool {
		return u.ResetToken != nil && *u.ResetToken == tokenHash
	})
}

func (m *MemoryRepo) GetUserByVerificationToken(ctx context.Context, token string) (*User, error) {
	return m.findUser("get user by verification token", func(u *User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (m *MemoryRepo) UpdateUser(ctx context.Context, id uuid.UUID, updates map[string]any) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("update user: %w", ErrNotFound)
	}
	next := *u
	for col, v := range updates {
		if err := setUserColumn(&next, col, v); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	if next.Email != u.Email {
		for _, other := range m.users {
			if other.ID != id && other.Email == next.Email {
				return nil, fmt.Errorf("update user: %w: email", ErrAlreadyExists)
			}
		}
	}
	next.UpdatedAt = m.now()
	m.users[id] = &next
	cp := next
	return &cp, nil
}

func (m *MemoryRepo) ListUsers(ctx context.Context, page query.Page) ([]*User, int, error) {
	m.mu.RLock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	m.mu.RUnlock()

	sortUsersNewestFirst(users)
	total := len(users)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return users[start:end], total, nil
}

func setUserColumn(u *User, col string, v any) error {
	switch col {
	case "first_name":
		u.FirstName, _ = v.(string)
	case "last_name":
		u.LastName, _ = v.(string)
	case "email":
		s, _ := v.(string)
		u.Email = NormalizeEmail(s)
	case "password_hash":
		u.PasswordHash, _ = v.(string)
	case "role":
		u.Role, _ = v.(string)
	case "phone":
		u.Phone, _ = v.(string)
	case "avatar_url":
		u.AvatarURL, _ = v.(string)
	case "is_verified":
		u.IsVerified, _ = v.(bool)
	case "verification_token":
		u.VerificationToken = stringPtr(v)
	case "verification_expires":
		u.VerificationExpires = timePtr(v)
	case "reset_token":
		u.ResetToken = stringPtr(v)
	case "reset_expires":
		u.ResetExpires = timePtr(v)
	case "preferences":
		u.Preferences, _ = v.(JSONMap)
	case "search_history":
		u.SearchHistory, _ = v.(SearchHistory)
	case "last_login_at":
		u.LastLoginAt = timePtr(v)
	case "external_id":
		u.ExternalID = stringPtr(v)
	case "auth_provider":
		u.AuthProvider, _ = v.(string)
	default:
		return fmt.Errorf("%w: unknown column %q", ErrInvalidInput, col)
	}
	return nil
}

func stringPtr(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

func timePtr(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

func sortUsersNewestFirst(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
}
