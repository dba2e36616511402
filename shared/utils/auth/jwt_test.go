package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insureportal-backend/shared/database/models"
)

func testUser(role models.Role) *models.User {
	email := "admin@system.local"
	return &models.User{
		ID:             uuid.New(),
		Email:          &email,
		FullName:       "System Administrator",
		Role:           role,
		OrganizationID: uuid.New(),
	}
}

func TestTokenManager_GenerateAndIdentify(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	user := testUser(models.RoleAdmin)

	token, expiresAt, err := manager.Generate(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	identity, err := manager.Identify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, user.OrganizationID, identity.OrganizationID)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.Equal(t, "admin@system.local", identity.Email)
	assert.Equal(t, "System Administrator", identity.FullName)
	assert.True(t, identity.IsAdmin())
}

func TestTokenManager_ClientWithoutEmail(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	user := testUser(models.RoleClient)
	user.Email = nil

	token, _, err := manager.Generate(user)
	require.NoError(t, err)

	identity, err := manager.Identify(token)
	require.NoError(t, err)
	assert.Empty(t, identity.Email)
	assert.False(t, identity.IsAdmin())
}

func TestTokenManager_Expired(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	manager.now = func() time.Time { return issued }

	token, _, err := manager.Generate(testUser(models.RoleClient))
	require.NoError(t, err)

	manager.now = time.Now
	_, err = manager.Identify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).Generate(testUser(models.RoleClient))
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).Identify(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsOtherSigningMethods(t *testing.T) {
	claims := Claims{
		UserID:         uuid.NewString(),
		Role:           models.RoleAdmin,
		OrganizationID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("test-secret", time.Hour).Identify(unsigned)
	assert.Error(t, err)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	user := testUser("AUDITOR")

	token, _, err := manager.Generate(user)
	require.NoError(t, err)

	_, err = manager.Identify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManager_Defaults(t *testing.T) {
	manager := NewTokenManager("", 0)
	assert.Equal(t, 24*time.Hour, manager.TTL())
}
