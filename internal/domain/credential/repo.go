package credential

import (
	"context"

	"credvault/internal/core/id"
)

// Repository defines the interface for credential persistence.
type Repository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByID(ctx context.Context, credentialID id.ID) (*Credential, error)
	// ExistsInDivision reports whether a credential with the given
	// username already lives in the division, excluding the record
	// with excludeID (pass id.Nil() when creating).
	ExistsInDivision(ctx context.Context, divisionID id.ID, username string, excludeID id.ID) (bool, error)
	List(ctx context.Context) ([]Credential, error)
	ListByDivisions(ctx context.Context, divisionIDs []id.ID) ([]Credential, error)
	Update(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, credentialID id.ID) error
	// PurgeByDivision deletes every credential of the division and
	// returns the number of rows removed.
	PurgeByDivision(ctx context.Context, divisionID id.ID) (int64, error)
}

// DivisionChecker verifies that a target division exists.
type DivisionChecker interface {
	Exists(ctx context.Context, divisionID id.ID) (bool, error)
}

// Auditor records credential mutations. Implementations must be
// best-effort; a failed audit write never fails the operation.
type Auditor interface {
	Record(ctx context.Context, action, entityType string, entityID id.ID, changes any)
}
