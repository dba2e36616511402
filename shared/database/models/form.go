package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FormStatus string

const (
	FormStatusDraft     FormStatus = "Draft"
	FormStatusSubmitted FormStatus = "Submitted"
	FormStatusReviewing FormStatus = "Reviewing"
	FormStatusApproved  FormStatus = "Approved"
	FormStatusRejected  FormStatus = "Rejected"
)

// FormStatuses lists the statuses in lifecycle order.
var FormStatuses = []FormStatus{
	FormStatusDraft,
	FormStatusSubmitted,
	FormStatusReviewing,
	FormStatusApproved,
	FormStatusRejected,
}

func (s FormStatus) Valid() bool {
	for _, status := range FormStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Form is an insurance request. Version grows by one on every successful update
// and is the optimistic concurrency token.
type Form struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ClientName     string         `json:"clientName" gorm:"size:200;not null"`
	Email          *string        `json:"email" gorm:"size:255"`
	Status         FormStatus     `json:"status" gorm:"size:20;not null;default:'Draft';index"`
	Version        int            `json:"version" gorm:"not null;default:1"`
	OrganizationID uuid.UUID      `json:"organizationId" gorm:"type:uuid;not null;index"`
	CreatedByID    uuid.UUID      `json:"createdById" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" gorm:"index"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization    `json:"-" gorm:"foreignKey:OrganizationID"`
	CreatedBy    User            `json:"-" gorm:"foreignKey:CreatedByID"`
	Items        []InsuranceItem `json:"items" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return nil
}
