package database

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"insureportal-backend/shared/database/models"
	applog "insureportal-backend/shared/logger"
)

const (
	SeedOrganizationName = "Acme Corp"
	SeedAdminEmail       = "admin@acme.com"
	SeedClientEmail      = "client@acme.com"
	SeedClientName       = "John Doe"
	SeedClientBirthDate  = "1990-01-01"
)

// SeedDatabase creates a demo organization with an admin, a client and a
// sample form. Running it twice is a no-op.
func SeedDatabase(db *gorm.DB) error {
	applog.Info().Msg("🌱 Checking database seed data...")

	var existing models.Organization
	err := db.Where("name = ?", SeedOrganizationName).First(&existing).Error
	if err == nil {
		applog.Info().Msg("✅ Database seed data is up to date")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{Name: SeedOrganizationName}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		adminEmail, clientEmail := SeedAdminEmail, SeedClientEmail
		admin := models.User{
			Email:          &adminEmail,
			FullName:       "Acme Administrator",
			Role:           models.RoleAdmin,
			OrganizationID: org.ID,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		clientDOB := SeedClientBirthDate
		client := models.User{
			Email:          &clientEmail,
			FullName:       SeedClientName,
			DateOfBirth:    &clientDOB,
			Role:           models.RoleClient,
			OrganizationID: org.ID,
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		duration := "1 year"
		policy := "POL-12345"
		comfortPrice, premiumPrice := "150", "200"

		form := models.Form{
			ClientName:     SeedClientName,
			Email:          &clientEmail,
			Status:         models.FormStatusDraft,
			OrganizationID: org.ID,
			CreatedByID:    client.ID,
			Items: []models.InsuranceItem{
				{
					InsuranceType: "Private Liability Insurance",
					Package:       "Comfort",
					RequestType:   models.RequestTypeNewPolicy,
					EffectiveDate: &now,
					Duration:      &duration,
					Price:         &comfortPrice,
				},
				{
					InsuranceType:       "Legal Protection Insurance",
					Package:             "Premium",
					RequestType:         models.RequestTypeUpgrade,
					CurrentPolicyNumber: &policy,
					EffectiveDate:       &now,
					Duration:            &duration,
					Price:               &premiumPrice,
				},
			},
		}
		if err := tx.Create(&form).Error; err != nil {
			return err
		}

		applog.Info().Str("organization", org.Name).Msg("✅ Seed data created successfully")
		return nil
	})
}
