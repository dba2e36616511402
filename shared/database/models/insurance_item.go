package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Insurance catalog offered by the portal.
var InsuranceTypes = []string{
	"Private Liability Insurance",
	"Legal Protection Insurance",
	"Household Insurance",
	"Traffic Legal Insurance",
	"Health Supplement Insurance",
	"Business Legal Insurance",
}

var Packages = []string{"Basic", "Comfort", "Premium"}

const (
	RequestTypeNewPolicy = "New Policy"
	RequestTypeUpgrade   = "Upgrade"
)

var RequestTypes = []string{RequestTypeNewPolicy, RequestTypeUpgrade}

// InsuranceItem is one requested policy inside a form. Price is a decimal
// string and only admins may write it.
type InsuranceItem struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FormID              uuid.UUID  `json:"formId" gorm:"type:uuid;not null;index"`
	InsuranceType       string     `json:"insuranceType" gorm:"size:100;not null"`
	Package             string     `json:"package" gorm:"size:50;not null"`
	RequestType         string     `json:"requestType" gorm:"size:50;not null"`
	CurrentPolicyNumber *string    `json:"currentPolicyNumber" gorm:"size:100"`
	EffectiveDate       *time.Time `json:"effectiveDate"`
	Duration            *string    `json:"duration" gorm:"size:50"`
	Price               *string    `json:"price" gorm:"size:32"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	// Relations
	Documents []Document `json:"documents" gorm:"foreignKey:InsuranceItemID;constraint:OnDelete:CASCADE"`
}

func (i *InsuranceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func IsInsuranceType(v string) bool { return contains(InsuranceTypes, v) }
func IsPackage(v string) bool       { return contains(Packages, v) }
func IsRequestType(v string) bool   { return contains(RequestTypes, v) }
