package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"insureportal-backend/shared/database/models"
	"insureportal-backend/shared/events"
	utils "insureportal-backend/shared/utils/auth"
)

func TestVisible(t *testing.T) {
	orgID := uuid.New()
	owner := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleClient}
	other := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleClient}
	admin := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleAdmin}
	outsider := &utils.Identity{UserID: uuid.New(), OrganizationID: uuid.New(), Role: models.RoleAdmin}

	event := events.Event{Type: events.FormUpdated, OrganizationID: orgID, CreatedByID: owner.UserID}

	assert.True(t, Visible(owner, event))
	assert.True(t, Visible(admin, event))
	assert.False(t, Visible(other, event))
	assert.False(t, Visible(outsider, event))
	assert.False(t, Visible(nil, event))
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:5173"}

	assert.True(t, originAllowed("", "api.local", allowed))
	assert.True(t, originAllowed("http://localhost:5173", "api.local", allowed))
	assert.True(t, originAllowed("https://api.local", "api.local", allowed))
	assert.False(t, originAllowed("https://evil.example", "api.local", allowed))
	assert.True(t, originAllowed("https://evil.example", "api.local", []string{"*"}))
}
