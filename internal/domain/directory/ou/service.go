package ou

import (
	"context"
	"fmt"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/pkg/logger"
)

// Service provides business logic for the OU catalog.
// All mutations are admin-only; the route layer enforces the role.
type Service struct {
	repo      Repository
	divisions DivisionCounter
}

// NewService creates a new OU service.
func NewService(repo Repository, divisions DivisionCounter) *Service {
	return &Service{repo: repo, divisions: divisions}
}

// Create provisions a new OU with a unique name.
func (s *Service) Create(ctx context.Context, name string) (*OrganisationalUnit, error) {
	unit := New(name)
	if err := unit.Validate(ctx); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByName(ctx, unit.Name); err == nil && existing != nil {
		return nil, apperror.NewDuplicate("organisational unit", "name", unit.Name)
	}

	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, fmt.Errorf("create ou: %w", err)
	}

	logger.Info(ctx, "ou created", "ou_id", unit.ID, "name", unit.Name)
	return unit, nil
}

// Get retrieves an OU by id.
func (s *Service) Get(ctx context.Context, ouID id.ID) (*OrganisationalUnit, error) {
	return s.repo.GetByID(ctx, ouID)
}

// List returns all OUs.
func (s *Service) List(ctx context.Context) ([]OrganisationalUnit, error) {
	return s.repo.List(ctx)
}

// ListByIDs returns the OUs with the given ids, skipping unknown ids.
func (s *Service) ListByIDs(ctx context.Context, ouIDs []id.ID) ([]OrganisationalUnit, error) {
	if len(ouIDs) == 0 {
		return []OrganisationalUnit{}, nil
	}
	return s.repo.ListByIDs(ctx, ouIDs)
}

// Delete removes an empty OU. An OU that still owns divisions cannot be
// deleted; divisions must be deleted or moved first.
func (s *Service) Delete(ctx context.Context, ouID id.ID) error {
	if _, err := s.repo.GetByID(ctx, ouID); err != nil {
		return err
	}

	count, err := s.divisions.CountByOU(ctx, ouID)
	if err != nil {
		return fmt.Errorf("count divisions: %w", err)
	}
	if count > 0 {
		return apperror.NewConflict("organisational unit still has divisions").
			WithDetail("ou_id", ouID.String()).
			WithDetail("divisions", count)
	}

	if err := s.repo.Delete(ctx, ouID); err != nil {
		return fmt.Errorf("delete ou: %w", err)
	}

	logger.Info(ctx, "ou deleted", "ou_id", ouID)
	return nil
}
