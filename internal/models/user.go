package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderSupabase = "supabase"
)

type User struct {
	ID                  uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName           string        `gorm:"size:100" json:"first_name" validate:"max=100"`
	LastName            string        `gorm:"size:100" json:"last_name" validate:"max=100"`
	Email               string        `gorm:"size:320;uniqueIndex;not null" json:"email" validate:"required,email"`
	PasswordHash        string        `gorm:"size:255" json:"-"`
	Role                string        `gorm:"size:20;not null;default:user" json:"role" validate:"oneof=user admin"`
	AuthProvider        string        `gorm:"size:20;not null;default:local" json:"auth_provider"`
	ExternalID          *string       `gorm:"uniqueIndex" json:"-"`
	Phone               string        `gorm:"size:32" json:"phone,omitempty"`
	AvatarURL           string        `json:"avatar_url,omitempty"`
	IsVerified          bool          `gorm:"not null;default:false" json:"is_verified"`
	VerificationToken   *string       `gorm:"index" json:"-"`
	VerificationExpires *time.Time    `json:"-"`
	ResetToken          *string       `gorm:"index" json:"-"`
	ResetExpires        *time.Time    `json:"-"`
	Preferences         JSONMap       `gorm:"type:jsonb" json:"preferences,omitempty"`
	SearchHistory       SearchHistory `gorm:"type:jsonb" json:"-"`
	LastLoginAt         *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (User) TableName() string { return UsersTable }

func (u *User) BeforeCreate(tx *gorm.DB) error {
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
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail trims and lowercases an address. Every write and lookup
// goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
