package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database/models"
)

type Claims struct {
	UserID         string      `json:"id"`
	Email          string      `json:"email,omitempty"`
	Role           models.Role `json:"role"`
	OrganizationID string      `json:"organizationId"`
	FullName       string      `json:"fullName"`
	jwt.RegisteredClaims
}

// Identity is the caller decoded from a valid session token.
type Identity struct {
	UserID         uuid.UUID
	Email          string
	Role           models.Role
	OrganizationID uuid.UUID
	FullName       string
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

// TokenManager signs and validates HS256 session tokens with a fixed lifetime.
// There is no refresh token: expiry forces a new login.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if secret == "" {
		secret = config.DefaultJWTSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// NewTokenManagerFromConfig builds a TokenManager from the loaded configuration
func NewTokenManagerFromConfig(cfg *config.Config) *TokenManager {
	return NewTokenManager(cfg.JWTSecret, cfg.GetJWTExpireDuration())
}

// TTL returns the token lifetime
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate JWT token for a user
func (m *TokenManager) Generate(user *models.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID:         user.ID.String(),
		Email:          user.EmailValue(),
		Role:           user.Role,
		OrganizationID: user.OrganizationID.String(),
		FullName:       user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate JWT token
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// Identify validates the token and converts its claims into an Identity
func (m *TokenManager) Identify(tokenString string) (*Identity, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:         userID,
		Email:          claims.Email,
		Role:           claims.Role,
		OrganizationID: orgID,
		FullName:       claims.FullName,
	}, nil
}
