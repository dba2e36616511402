package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User belongs to exactly one organization. Admins are identified by email,
// clients by the (FullName, DateOfBirth) pair.
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email          *string   `json:"email" gorm:"size:255;uniqueIndex"`
	FullName       string    `json:"fullName" gorm:"size:200;uniqueIndex:idx_users_identity"`
	DateOfBirth    *string   `json:"dateOfBirth" gorm:"size:10;uniqueIndex:idx_users_identity"`
	Role           Role      `json:"role" gorm:"size:20;not null;default:'CLIENT'"`
	OrganizationID uuid.UUID `json:"organizationId" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Relations
	Organization Organization `json:"-" gorm:"foreignKey:OrganizationID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// EmailValue returns the email or an empty string.
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
