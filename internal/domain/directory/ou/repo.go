package ou

import (
	"context"

	"credvault/internal/core/id"
)

// Repository defines the interface for OU persistence.
type Repository interface {
	Create(ctx context.Context, unit *OrganisationalUnit) error
	GetByID(ctx context.Context, ouID id.ID) (*OrganisationalUnit, error)
	GetByName(ctx context.Context, name string) (*OrganisationalUnit, error)
	List(ctx context.Context) ([]OrganisationalUnit, error)
	ListByIDs(ctx context.Context, ouIDs []id.ID) ([]OrganisationalUnit, error)
	Exists(ctx context.Context, ouID id.ID) (bool, error)
	Delete(ctx context.Context, ouID id.ID) error
}

// DivisionCounter reports how many divisions an OU still owns.
// Used to refuse deleting a non-empty OU.
type DivisionCounter interface {
	CountByOU(ctx context.Context, ouID id.ID) (int, error)
}
