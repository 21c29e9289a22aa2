package credential

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/pkg/logger"
)

// ServiceConfig holds credential service configuration.
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

// Service provides business logic for credential records. Every
// operation takes the calling principal and enforces division-scoped
// authorization before touching the store.
type Service struct {
	repo      Repository
	divisions DivisionChecker
	auditor   Auditor
	config    ServiceConfig
}

// NewService creates a new credential service. auditor may be nil.
func NewService(repo Repository, divisions DivisionChecker, auditor Auditor, config ServiceConfig) *Service {
	return &Service{
		repo:      repo,
		divisions: divisions,
		auditor:   auditor,
		config:    config,
	}
}

// List returns the credentials visible to the principal. Admins see
// every record; everyone else sees the credentials of their own
// divisions only. A user with no divisions gets an empty list.
func (s *Service) List(ctx context.Context, p security.Principal) ([]Credential, error) {
	if p.IsAdmin() {
		return s.repo.List(ctx)
	}
	if len(p.DivisionIDs) == 0 {
		return []Credential{}, nil
	}
	return s.repo.ListByDivisions(ctx, p.DivisionIDs)
}

// ListByDivision returns the credentials of one division. Non-admin
// callers must be members of that division.
func (s *Service) ListByDivision(ctx context.Context, p security.Principal, divisionID id.ID) ([]Credential, error) {
	exists, err := s.divisions.Exists(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("check division: %w", err)
	}
	if !exists {
		return nil, apperror.NewNotFound("division", divisionID)
	}
	if err := security.Require(p, security.ActionRead, security.CredentialIn(divisionID)); err != nil {
		return nil, err
	}
	return s.repo.ListByDivisions(ctx, []id.ID{divisionID})
}

// Get retrieves a single credential. Existence is checked before
// authorization so an unknown id reads as not found rather than leaking
// through a forbidden response.
func (s *Service) Get(ctx context.Context, p security.Principal, credentialID id.ID) (*Credential, error) {
	cred, err := s.repo.GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if err := security.Require(p, security.ActionRead, security.CredentialIn(cred.DivisionID)); err != nil {
		return nil, err
	}
	return cred, nil
}

// Create stores a new credential in a division the principal can write
// to. The username must be unique within the target division.
func (s *Service) Create(ctx context.Context, p security.Principal, req CreateRequest) (*Credential, error) {
	cred := New(req.Username, req.Description, req.DivisionID)
	if err := cred.Validate(ctx); err != nil {
		return nil, err
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters long", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.divisions.Exists(ctx, req.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("check division: %w", err)
	}
	if !exists {
		return nil, apperror.NewNotFound("division", req.DivisionID)
	}

	if err := security.Require(p, security.ActionCreate, security.CredentialIn(req.DivisionID)); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsInDivision(ctx, req.DivisionID, cred.Username, id.Nil())
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if taken {
		return nil, apperror.NewDuplicate("credential", "username", cred.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	cred.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	s.audit(ctx, "create", cred.ID, map[string]any{
		"username":    cred.Username,
		"division_id": cred.DivisionID.String(),
	})
	logger.Info(ctx, "credential created",
		"credential_id", cred.ID,
		"division_id", cred.DivisionID,
		"user_id", p.UserID)

	return cred, nil
}

// Update applies a partial update to a credential. The principal needs
// update rights in the credential's current division, and when the
// record is moved, create rights in the destination division too.
func (s *Service) Update(ctx context.Context, p security.Principal, credentialID id.ID, req UpdateRequest) (*Credential, error) {
	cred, err := s.repo.GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	if err := security.Require(p, security.ActionUpdate, security.CredentialIn(cred.DivisionID)); err != nil {
		return nil, err
	}

	changes := map[string]any{}

	targetDivision := cred.DivisionID
	if req.DivisionID != nil && *req.DivisionID != cred.DivisionID {
		targetDivision = *req.DivisionID
		exists, err := s.divisions.Exists(ctx, targetDivision)
		if err != nil {
			return nil, fmt.Errorf("check division: %w", err)
		}
		if !exists {
			return nil, apperror.NewNotFound("division", targetDivision)
		}
		if err := security.Require(p, security.ActionCreate, security.CredentialIn(targetDivision)); err != nil {
			return nil, err
		}
		changes["division_id"] = targetDivision.String()
	}

	username := cred.Username
	if req.Username != nil && *req.Username != cred.Username {
		username = *req.Username
		if username == "" {
			return nil, apperror.NewValidation("credential username is required").
				WithDetail("field", "username")
		}
		changes["username"] = username
	}

	if username != cred.Username || targetDivision != cred.DivisionID {
		taken, err := s.repo.ExistsInDivision(ctx, targetDivision, username, cred.ID)
		if err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if taken {
			return nil, apperror.NewDuplicate("credential", "username", username)
		}
	}

	cred.Username = username
	cred.DivisionID = targetDivision

	if req.Description != nil {
		cred.Description = *req.Description
		changes["description"] = true
	}

	if req.Password != nil {
		if len(*req.Password) < s.config.PasswordMinLength {
			return nil, apperror.NewValidation(
				fmt.Sprintf("password must be at least %d characters long", s.config.PasswordMinLength),
			).WithDetail("field", "password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.config.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		cred.PasswordHash = string(hash)
		changes["password"] = true
	}

	if err := s.repo.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}

	s.audit(ctx, "update", cred.ID, changes)
	logger.Info(ctx, "credential updated",
		"credential_id", cred.ID,
		"division_id", cred.DivisionID,
		"user_id", p.UserID)

	return cred, nil
}

// Delete removes a credential the principal can delete.
func (s *Service) Delete(ctx context.Context, p security.Principal, credentialID id.ID) error {
	cred, err := s.repo.GetByID(ctx, credentialID)
	if err != nil {
		return err
	}

	if err := security.Require(p, security.ActionDelete, security.CredentialIn(cred.DivisionID)); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, credentialID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	s.audit(ctx, "delete", credentialID, map[string]any{
		"username":    cred.Username,
		"division_id": cred.DivisionID.String(),
	})
	logger.Info(ctx, "credential deleted",
		"credential_id", credentialID,
		"division_id", cred.DivisionID,
		"user_id", p.UserID)

	return nil
}

// audit records a mutation when an auditor is configured.
func (s *Service) audit(ctx context.Context, action string, entityID id.ID, changes any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, action, "credential", entityID, changes)
}
