package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a supporting file attached to an insurance item.
type Document struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	InsuranceItemID uuid.UUID `json:"insuranceItemId" gorm:"type:uuid;not null;index"`
	Name            string    `json:"name" gorm:"size:255;not null"`
	FileURL         string    `json:"fileUrl" gorm:"size:1024;not null"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
