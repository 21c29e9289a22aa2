package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	PasswordMinLength int
	BcryptCost        int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PasswordMinLength: 6,
		BcryptCost:        12,
	}
}

// Service provides authentication and user administration logic.
type Service struct {
	userRepo   UserRepository
	divisions  DivisionDirectory
	ous        OUDirectory
	jwtService *JWTService
	auditor    Auditor
	config     ServiceConfig
}

// NewService creates a new auth service. auditor may be nil.
func NewService(
	userRepo UserRepository,
	divisions DivisionDirectory,
	ous OUDirectory,
	jwtService *JWTService,
	auditor Auditor,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:   userRepo,
		divisions:  divisions,
		ous:        ous,
		jwtService: jwtService,
		auditor:    auditor,
		config:     config,
	}
}

// TokenResult is an issued access token.
type TokenResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}

// Register registers a new user with the default role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, *TokenResult, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 {
		return nil, nil, apperror.NewValidation("username must be at least 3 characters long").
			WithDetail("field", "username")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters long", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.userRepo.Exists(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("check username exists: %w", err)
	}
	if exists {
		return nil, nil, apperror.NewDuplicate("user", "username", username)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(username, string(passwordHash))
	if err := user.Validate(ctx); err != nil {
		return nil, nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "user registered",
		"user_id", user.ID,
		"username", user.Username)

	return user, token, nil
}

// Login authenticates a user and returns an access token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*User, *TokenResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}
	if err := user.CanLogin(); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := s.loadRelations(ctx, user); err != nil {
		return nil, nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "user logged in",
		"user_id", user.ID,
		"username", user.Username)

	return user, token, nil
}

// ResolvePrincipal resolves a verified token subject to a fresh principal
// snapshot for one request. Role and division membership come from the
// store, not from the token, and inactive or deleted accounts are rejected.
func (s *Service) ResolvePrincipal(ctx context.Context, userID id.ID) (*User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}
	if err := user.CanLogin(); err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user with loaded memberships.
func (s *Service) GetUser(ctx context.Context, userID id.ID) (*User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	if err := s.loadRelations(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers lists users for the admin surface.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int, error) {
	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		if err := s.loadRelations(ctx, &users[i]); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

// VisibleOUIDs computes the authoritative OU visibility set for a user:
// the union of direct OU assignments and the OUs owning the user's
// divisions, deduplicated by id. Neither side alone is authoritative.
func (s *Service) VisibleOUIDs(ctx context.Context, userID id.ID) ([]id.ID, error) {
	direct, err := s.userRepo.LoadOUIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load direct ous: %w", err)
	}

	divisionIDs, err := s.userRepo.LoadDivisionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load divisions: %w", err)
	}

	var derived []id.ID
	if len(divisionIDs) > 0 {
		derived, err = s.divisions.OwningOUs(ctx, divisionIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve owning ous: %w", err)
		}
	}

	seen := make(map[id.ID]struct{}, len(direct)+len(derived))
	union := make([]id.ID, 0, len(direct)+len(derived))
	for _, ouID := range append(direct, derived...) {
		if _, ok := seen[ouID]; ok {
			continue
		}
		seen[ouID] = struct{}{}
		union = append(union, ouID)
	}
	return union, nil
}

// ValidateToken verifies an access token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.jwtService.ValidateToken(tokenString)
}

// issueToken signs an access token for the user.
func (s *Service) issueToken(user *User) (*TokenResult, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(user.ID.String(), user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &TokenResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
	}, nil
}

// loadRelations populates DivisionIDs and OUIDs.
func (s *Service) loadRelations(ctx context.Context, user *User) error {
	divisionIDs, err := s.userRepo.LoadDivisionIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load divisions: %w", err)
	}
	user.DivisionIDs = divisionIDs

	ouIDs, err := s.userRepo.LoadOUIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load ous: %w", err)
	}
	user.OUIDs = ouIDs
	return nil
}

// audit records a mutation when an auditor is configured.
func (s *Service) audit(ctx context.Context, action string, entityID id.ID, changes any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, action, "user", entityID, changes)
}
