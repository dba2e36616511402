// Package permission holds the role, tenant and ownership rules for forms.
// Every rule works on the caller Identity decoded from the session token.
package permission

import (
	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/database/models"
	utils "insureportal-backend/shared/utils/auth"
)

// Action is what the caller wants to do with a form.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// RequireRole fails with Forbidden unless the caller has one of the roles
func RequireRole(id *utils.Identity, roles ...models.Role) error {
	if id == nil {
		return apperrors.Unauthenticated("authentication required")
	}
	for _, role := range roles {
		if id.Role == role {
			return nil
		}
	}
	return apperrors.Forbidden("insufficient permissions")
}

// CheckTenant fails when the form lives in another organization
func CheckTenant(id *utils.Identity, form *models.Form) error {
	if id == nil {
		return apperrors.Unauthenticated("authentication required")
	}
	if form.OrganizationID != id.OrganizationID {
		return apperrors.Forbidden("forbidden")
	}
	return nil
}

// CheckOwnership fails when a client touches a form it did not create
func CheckOwnership(id *utils.Identity, form *models.Form) error {
	if id.Role == models.RoleClient && form.CreatedByID != id.UserID {
		return apperrors.Forbidden("forbidden")
	}
	return nil
}

// CheckFormAccess applies tenant, ownership and lifecycle rules for an action.
func CheckFormAccess(id *utils.Identity, form *models.Form, action Action) error {
	if err := CheckTenant(id, form); err != nil {
		return err
	}
	if err := CheckOwnership(id, form); err != nil {
		return err
	}
	if action == ActionDelete && !id.IsAdmin() && form.Status != models.FormStatusDraft {
		return apperrors.Forbidden("cannot delete submitted forms")
	}
	return nil
}

// CanSetPrice reports whether the caller may write item prices
func CanSetPrice(id *utils.Identity) bool {
	return id != nil && id.IsAdmin()
}

// ResolveStatus returns the status a form should have after the caller asked
// for requested. Admins may move to any valid status. Anyone else may only
// submit a draft; other requests keep the current status.
func ResolveStatus(id *utils.Identity, current models.FormStatus, requested *models.FormStatus) (models.FormStatus, error) {
	if requested == nil || *requested == "" || *requested == current {
		return current, nil
	}
	if id.IsAdmin() {
		if !requested.Valid() {
			return current, apperrors.InvalidInput("invalid status %q", string(*requested))
		}
		return *requested, nil
	}
	if current == models.FormStatusDraft && *requested == models.FormStatusSubmitted {
		return models.FormStatusSubmitted, nil
	}
	return current, nil
}
