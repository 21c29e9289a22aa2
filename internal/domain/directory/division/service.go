package division

import (
	"context"
	"fmt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/tx"
	"credvault/pkg/logger"
)

// Service provides business logic for the division catalog.
// All mutations are admin-only; the route layer enforces the role.
type Service struct {
	repo        Repository
	ous         OUChecker
	credentials CredentialPurger
	txManager   tx.Manager
}

// NewService creates a new division service.
func NewService(repo Repository, ous OUChecker, credentials CredentialPurger, txManager tx.Manager) *Service {
	return &Service{
		repo:        repo,
		ous:         ous,
		credentials: credentials,
		txManager:   txManager,
	}
}

// Create provisions a new division under an existing OU.
func (s *Service) Create(ctx context.Context, name string, ouID id.ID) (*Division, error) {
	div := New(name, ouID)
	if err := div.Validate(ctx); err != nil {
		return nil, err
	}

	exists, err := s.ous.Exists(ctx, ouID)
	if err != nil {
		return nil, fmt.Errorf("check ou: %w", err)
	}
	if !exists {
		return nil, apperror.NewNotFound("organisational unit", ouID)
	}

	if existing, err := s.repo.GetByName(ctx, ouID, div.Name); err == nil && existing != nil {
		return nil, apperror.NewDuplicate("division", "name", div.Name)
	}

	if err := s.repo.Create(ctx, div); err != nil {
		return nil, fmt.Errorf("create division: %w", err)
	}

	logger.Info(ctx, "division created", "division_id", div.ID, "name", div.Name, "ou_id", ouID)
	return div, nil
}

// Get retrieves a division by id.
func (s *Service) Get(ctx context.Context, divisionID id.ID) (*Division, error) {
	return s.repo.GetByID(ctx, divisionID)
}

// List returns all divisions, or the divisions of one OU when ouID is set.
func (s *Service) List(ctx context.Context, ouID id.ID) ([]Division, error) {
	if id.IsNil(ouID) {
		return s.repo.List(ctx)
	}
	return s.repo.ListByOU(ctx, ouID)
}

// ListByIDs returns the divisions with the given ids, skipping unknown ids.
func (s *Service) ListByIDs(ctx context.Context, divisionIDs []id.ID) ([]Division, error) {
	if len(divisionIDs) == 0 {
		return []Division{}, nil
	}
	return s.repo.ListByIDs(ctx, divisionIDs)
}

// Delete removes a division together with everything hanging off it:
// its credentials and the membership rows of assigned users. The whole
// cascade runs in one transaction.
func (s *Service) Delete(ctx context.Context, divisionID id.ID) error {
	if _, err := s.repo.GetByID(ctx, divisionID); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		purged, err := s.credentials.PurgeByDivision(txCtx, divisionID)
		if err != nil {
			return fmt.Errorf("purge credentials: %w", err)
		}

		detached, err := s.repo.DetachUsers(txCtx, divisionID)
		if err != nil {
			return fmt.Errorf("detach users: %w", err)
		}

		if err := s.repo.Delete(txCtx, divisionID); err != nil {
			return fmt.Errorf("delete division: %w", err)
		}

		logger.Info(txCtx, "division deleted",
			"division_id", divisionID,
			"credentials_purged", purged,
			"users_detached", detached)
		return nil
	})
}
