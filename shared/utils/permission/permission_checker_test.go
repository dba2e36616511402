package permission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/database/models"
	utils "insureportal-backend/shared/utils/auth"
)

func status(s models.FormStatus) *models.FormStatus { return &s }

func TestResolveStatus(t *testing.T) {
	admin := &utils.Identity{UserID: uuid.New(), Role: models.RoleAdmin}
	client := &utils.Identity{UserID: uuid.New(), Role: models.RoleClient}

	tests := []struct {
		name      string
		id        *utils.Identity
		current   models.FormStatus
		requested *models.FormStatus
		want      models.FormStatus
		wantErr   bool
	}{
		{"no request keeps status", client, models.FormStatusDraft, nil, models.FormStatusDraft, false},
		{"client submits draft", client, models.FormStatusDraft, status(models.FormStatusSubmitted), models.FormStatusSubmitted, false},
		{"client cannot approve", client, models.FormStatusSubmitted, status(models.FormStatusApproved), models.FormStatusSubmitted, false},
		{"client cannot skip to approved", client, models.FormStatusDraft, status(models.FormStatusApproved), models.FormStatusDraft, false},
		{"client cannot reopen", client, models.FormStatusSubmitted, status(models.FormStatusDraft), models.FormStatusSubmitted, false},
		{"client invalid status discarded", client, models.FormStatusDraft, status("Archived"), models.FormStatusDraft, false},
		{"admin approves", admin, models.FormStatusSubmitted, status(models.FormStatusApproved), models.FormStatusApproved, false},
		{"admin reopens rejected", admin, models.FormStatusRejected, status(models.FormStatusDraft), models.FormStatusDraft, false},
		{"admin invalid status", admin, models.FormStatusDraft, status("Archived"), models.FormStatusDraft, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStatus(tt.id, tt.current, tt.requested)
			if tt.wantErr {
				assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckFormAccess(t *testing.T) {
	orgID := uuid.New()
	owner := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleClient}
	otherClient := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleClient}
	admin := &utils.Identity{UserID: uuid.New(), OrganizationID: orgID, Role: models.RoleAdmin}
	foreignAdmin := &utils.Identity{UserID: uuid.New(), OrganizationID: uuid.New(), Role: models.RoleAdmin}

	draft := &models.Form{OrganizationID: orgID, CreatedByID: owner.UserID, Status: models.FormStatusDraft}
	submitted := &models.Form{OrganizationID: orgID, CreatedByID: owner.UserID, Status: models.FormStatusSubmitted}

	tests := []struct {
		name     string
		id       *utils.Identity
		form     *models.Form
		action   Action
		wantKind apperrors.Kind
		allowed  bool
	}{
		{"owner reads", owner, draft, ActionRead, 0, true},
		{"owner deletes draft", owner, draft, ActionDelete, 0, true},
		{"owner cannot delete submitted", owner, submitted, ActionDelete, apperrors.KindForbidden, false},
		{"other client cannot read", otherClient, draft, ActionRead, apperrors.KindForbidden, false},
		{"other client cannot export", otherClient, draft, ActionExport, apperrors.KindForbidden, false},
		{"admin reads any in tenant", admin, draft, ActionRead, 0, true},
		{"admin deletes submitted", admin, submitted, ActionDelete, 0, true},
		{"foreign admin forbidden", foreignAdmin, draft, ActionRead, apperrors.KindForbidden, false},
		{"anonymous", nil, draft, ActionRead, apperrors.KindUnauthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFormAccess(tt.id, tt.form, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestRequireRole(t *testing.T) {
	client := &utils.Identity{Role: models.RoleClient}

	assert.NoError(t, RequireRole(client, models.RoleClient, models.RoleAdmin))
	assert.True(t, apperrors.IsKind(RequireRole(client, models.RoleAdmin), apperrors.KindForbidden))
	assert.True(t, apperrors.IsKind(RequireRole(nil, models.RoleAdmin), apperrors.KindUnauthenticated))
}

func TestCanSetPrice(t *testing.T) {
	assert.True(t, CanSetPrice(&utils.Identity{Role: models.RoleAdmin}))
	assert.False(t, CanSetPrice(&utils.Identity{Role: models.RoleClient}))
	assert.False(t, CanSetPrice(nil))
}
