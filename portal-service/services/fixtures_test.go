package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"insureportal-backend/shared/database/dbtest"
	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/events"
	utils "insureportal-backend/shared/utils/auth"
)

type fixture struct {
	db          *gorm.DB
	org         models.Organization
	admin       *utils.Identity
	client      *utils.Identity
	otherClient *utils.Identity
	hub         *events.Hub
	forms       *FormService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	f := &fixture{db: db, hub: events.NewHub(16)}

	f.org = models.Organization{Name: "Acme Corp"}
	require.NoError(t, db.Create(&f.org).Error)

	adminEmail := "admin@acme.com"
	f.admin = f.createUser(t, f.org, models.User{Email: &adminEmail, FullName: "Acme Admin", Role: models.RoleAdmin})
	f.client = f.createUser(t, f.org, models.User{FullName: "John Doe", DateOfBirth: strPtr("1990-01-01"), Role: models.RoleClient})
	f.otherClient = f.createUser(t, f.org, models.User{FullName: "Jane Roe", DateOfBirth: strPtr("1985-05-05"), Role: models.RoleClient})

	f.forms = NewFormService(db, f.hub)
	return f
}

func (f *fixture) createUser(t *testing.T, org models.Organization, user models.User) *utils.Identity {
	t.Helper()
	user.OrganizationID = org.ID
	require.NoError(t, f.db.Create(&user).Error)
	return identityOf(&user)
}

// foreignAdmin returns an admin of a second organization
func (f *fixture) foreignAdmin(t *testing.T) *utils.Identity {
	t.Helper()
	org := models.Organization{Name: "Globex"}
	require.NoError(t, f.db.Create(&org).Error)
	return f.createUser(t, org, models.User{Email: strPtr("admin@globex.com"), FullName: "Globex Admin", Role: models.RoleAdmin})
}

func identityOf(user *models.User) *utils.Identity {
	return &utils.Identity{
		UserID:         user.ID,
		Email:          user.EmailValue(),
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		FullName:       user.FullName,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func statusPtr(s models.FormStatus) *models.FormStatus { return &s }

func item(insuranceType string, docs ...DocumentInput) ItemInput {
	return ItemInput{InsuranceType: insuranceType, Documents: docs}
}

func itemByType(t *testing.T, form *models.Form, insuranceType string) models.InsuranceItem {
	t.Helper()
	for _, it := range form.Items {
		if it.InsuranceType == insuranceType {
			return it
		}
	}
	t.Fatalf("item %q not found", insuranceType)
	return models.InsuranceItem{}
}
