package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"insureportal-backend/shared/apperrors"
	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database/models"
	applog "insureportal-backend/shared/logger"
	utils "insureportal-backend/shared/utils/auth"
)

const (
	LoginTypeAdmin  = "admin"
	LoginTypeClient = "client"

	// SystemAdminEmail is the synthetic identity every admin key login resolves to.
	SystemAdminEmail    = "admin@system.local"
	SystemAdminFullName = "System Administrator"
)

// LoginRequest carries the credentials of either login flow.
type LoginRequest struct {
	Type        string `json:"type" example:"client"`
	AccessKey   string `json:"accessKey,omitempty" example:"1924"`
	FullName    string `json:"fullName,omitempty" example:"John Doe"`
	DateOfBirth string `json:"dateOfBirth,omitempty" example:"1990-01-01"`
}

// LoginResult is the session handed back to the caller
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Authenticator resolves credentials of one login type to a user,
// provisioning the user when the scheme allows it.
type Authenticator interface {
	Kind() string
	Authenticate(ctx context.Context, req LoginRequest) (*models.User, error)
}

// AdminKeyAuthenticator checks a shared access key and maps every successful
// login to the system administrator.
type AdminKeyAuthenticator struct {
	db      *gorm.DB
	key     string
	keyHash string
	orgName string
}

func NewAdminKeyAuthenticator(db *gorm.DB, cfg *config.Config) *AdminKeyAuthenticator {
	return &AdminKeyAuthenticator{
		db:      db,
		key:     cfg.AdminAccessKey,
		keyHash: cfg.AdminAccessKeyHash,
		orgName: cfg.DefaultOrgName,
	}
}

func (a *AdminKeyAuthenticator) Kind() string { return LoginTypeAdmin }

func (a *AdminKeyAuthenticator) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	if !utils.VerifyAccessKey(req.AccessKey, a.key, a.keyHash) {
		return nil, apperrors.Unauthenticated("Invalid Access Key")
	}

	email := SystemAdminEmail
	return findOrCreateUser(ctx, a.db, a.orgName,
		func(tx *gorm.DB) *gorm.DB { return tx.Where("email = ?", email) },
		func(org models.Organization) *models.User {
			return &models.User{
				Email:          &email,
				FullName:       SystemAdminFullName,
				Role:           models.RoleAdmin,
				OrganizationID: org.ID,
			}
		})
}

// NameDOBAuthenticator identifies clients by full name and date of birth.
// There is no secret: the first login with a new pair creates the user and
// anyone who knows the pair later becomes that user (trust on first use).
type NameDOBAuthenticator struct {
	db      *gorm.DB
	orgName string
}

func NewNameDOBAuthenticator(db *gorm.DB, cfg *config.Config) *NameDOBAuthenticator {
	return &NameDOBAuthenticator{db: db, orgName: cfg.DefaultOrgName}
}

func (a *NameDOBAuthenticator) Kind() string { return LoginTypeClient }

func (a *NameDOBAuthenticator) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	fullName := utils.NormalizeFullName(req.FullName)
	if fullName == "" || strings.TrimSpace(req.DateOfBirth) == "" {
		return nil, apperrors.InvalidInput("Full Name and Date of Birth are required")
	}
	dob, err := utils.NormalizeDateOfBirth(req.DateOfBirth)
	if err != nil {
		return nil, apperrors.InvalidInput("%s", err.Error())
	}

	return findOrCreateUser(ctx, a.db, a.orgName,
		func(tx *gorm.DB) *gorm.DB { return tx.Where("full_name = ? AND date_of_birth = ?", fullName, dob) },
		func(org models.Organization) *models.User {
			return &models.User{
				FullName:       fullName,
				DateOfBirth:    &dob,
				Role:           models.RoleClient,
				OrganizationID: org.ID,
			}
		})
}

// findOrCreateUser looks the user up with scope and creates it on a miss. A
// concurrent login may win the insert; the unique index then rejects ours and
// the winner is read back.
func findOrCreateUser(ctx context.Context, db *gorm.DB, orgName string, scope func(*gorm.DB) *gorm.DB, build func(models.Organization) *models.User) (*models.User, error) {
	var user models.User
	err := scope(db.WithContext(ctx)).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("Login failed", err)
	}

	var created *models.User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := defaultOrganization(tx, orgName)
		if err != nil {
			return err
		}
		created = build(org)
		return tx.Create(created).Error
	})
	if err == nil {
		applog.Info().Str("user_id", created.ID.String()).Str("role", string(created.Role)).
			Str("organization_id", created.OrganizationID.String()).Msg("👤 User provisioned on first login")
		return created, nil
	}

	if retryErr := scope(db.WithContext(ctx)).First(&user).Error; retryErr == nil {
		return &user, nil
	}
	return nil, apperrors.Internal("Login failed", err)
}

// defaultOrganization returns the oldest organization, creating one when none exists.
func defaultOrganization(tx *gorm.DB, name string) (models.Organization, error) {
	var org models.Organization
	err := tx.Order("created_at ASC").First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	if name == "" {
		name = "System Org"
	}
	org = models.Organization{Name: name}
	if err := tx.Create(&org).Error; err != nil {
		return org, err
	}
	applog.Info().Str("organization_id", org.ID.String()).Str("name", name).Msg("🏢 Organization created")
	return org, nil
}

// AuthService issues session tokens for the registered authenticators.
type AuthService struct {
	db             *gorm.DB
	tokens         *utils.TokenManager
	authenticators map[string]Authenticator
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenManager, authenticators ...Authenticator) *AuthService {
	registry := make(map[string]Authenticator, len(authenticators))
	for _, a := range authenticators {
		registry[a.Kind()] = a
	}
	return &AuthService{db: db, tokens: tokens, authenticators: registry}
}

// NewDefaultAuthService wires the admin key and name/date-of-birth flows.
func NewDefaultAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return NewAuthService(db, utils.NewTokenManagerFromConfig(cfg),
		NewAdminKeyAuthenticator(db, cfg),
		NewNameDOBAuthenticator(db, cfg),
	)
}

// Tokens returns the token manager used to sign sessions
func (s *AuthService) Tokens() *utils.TokenManager {
	return s.tokens
}

// Login authenticates the request and signs a session token for the user.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	authenticator, ok := s.authenticators[strings.ToLower(strings.TrimSpace(req.Type))]
	if !ok {
		return nil, apperrors.InvalidInput("Invalid login type")
	}

	user, err := authenticator.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me loads the current user record.
func (s *AuthService) Me(ctx context.Context, id *utils.Identity) (*models.User, error) {
	if id == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("Failed to fetch user", err)
	}
	return &user, nil
}
