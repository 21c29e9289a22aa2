package division

import (
	"context"

	"credvault/internal/core/id"
)

// Repository defines the interface for division persistence.
type Repository interface {
	Create(ctx context.Context, div *Division) error
	GetByID(ctx context.Context, divisionID id.ID) (*Division, error)
	GetByName(ctx context.Context, ouID id.ID, name string) (*Division, error)
	List(ctx context.Context) ([]Division, error)
	ListByIDs(ctx context.Context, divisionIDs []id.ID) ([]Division, error)
	ListByOU(ctx context.Context, ouID id.ID) ([]Division, error)
	CountByOU(ctx context.Context, ouID id.ID) (int, error)
	Exists(ctx context.Context, divisionID id.ID) (bool, error)
	// OwningOUs returns the distinct OU ids owning the given divisions.
	OwningOUs(ctx context.Context, divisionIDs []id.ID) ([]id.ID, error)
	Delete(ctx context.Context, divisionID id.ID) error
	// DetachUsers removes all user memberships of the division and
	// returns the number of rows removed.
	DetachUsers(ctx context.Context, divisionID id.ID) (int64, error)
}

// OUChecker verifies that the owning OU exists before a division is
// created under it.
type OUChecker interface {
	Exists(ctx context.Context, ouID id.ID) (bool, error)
}

// CredentialPurger deletes all credentials of a division as part of a
// cascade delete. Returns the number of credentials removed.
type CredentialPurger interface {
	PurgeByDivision(ctx context.Context, divisionID id.ID) (int64, error)
}
