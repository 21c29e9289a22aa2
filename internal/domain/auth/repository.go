package auth

import (
	"context"

	"credvault/internal/core/id"
	"credvault/internal/core/security"
)

// UserRepository defines persistence for users and their membership links.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, filter UserFilter) ([]User, int, error)

	// SetRole overwrites the user's role. No effect on memberships.
	SetRole(ctx context.Context, userID id.ID, role security.Role) error

	// LoadDivisionIDs returns the ids of divisions the user is assigned to.
	LoadDivisionIDs(ctx context.Context, userID id.ID) ([]id.ID, error)

	// LoadOUIDs returns the ids of OUs the user is directly assigned to.
	LoadOUIDs(ctx context.Context, userID id.ID) ([]id.ID, error)

	// AddDivision links the user to a division. Returns false if the link
	// already existed. Implementations must be atomic (add-if-absent at the
	// store), so two concurrent assigns cannot lose an update.
	AddDivision(ctx context.Context, userID, divisionID id.ID) (bool, error)

	// RemoveDivision unlinks the user from a division. Returns false if no
	// link existed.
	RemoveDivision(ctx context.Context, userID, divisionID id.ID) (bool, error)

	// AddOU links the user directly to an OU. Same contract as AddDivision.
	AddOU(ctx context.Context, userID, ouID id.ID) (bool, error)

	// RemoveOU unlinks the user from an OU. Same contract as RemoveDivision.
	RemoveOU(ctx context.Context, userID, ouID id.ID) (bool, error)
}

// DivisionDirectory is the narrow view of the division catalog the auth
// service needs for assignment checks and OU visibility.
type DivisionDirectory interface {
	Exists(ctx context.Context, divisionID id.ID) (bool, error)

	// OwningOUs resolves the distinct OU ids that own the given divisions.
	OwningOUs(ctx context.Context, divisionIDs []id.ID) ([]id.ID, error)
}

// OUDirectory is the narrow view of the OU catalog used for assignments.
type OUDirectory interface {
	Exists(ctx context.Context, ouID id.ID) (bool, error)
}

// Auditor records membership and role mutations. Implementations must be
// best-effort: audit failure never fails the business operation.
type Auditor interface {
	Record(ctx context.Context, action string, entityType string, entityID id.ID, changes any)
}
