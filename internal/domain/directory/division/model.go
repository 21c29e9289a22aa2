// Package division provides the division catalog. A division belongs to
// exactly one organisational unit and owns a repository of credentials.
package division

import (
	"context"
	"strings"
	"time"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

// Division represents a sub-unit of an OU.
//
// The credential repository of a division is a derived view queried from
// the credentials table by owning foreign key; no back-link array is
// persisted.
type Division struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OUID      id.ID     `db:"ou_id" json:"ouId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Version   int       `db:"version" json:"version"`
}

// New creates a new division under the given OU.
func New(name string, ouID id.ID) *Division {
	now := time.Now()
	return &Division{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		OUID:      ouID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate validates division invariants.
func (d *Division) Validate(ctx context.Context) error {
	if len(d.Name) < 3 {
		return apperror.NewValidation("division name must be at least 3 characters long").
			WithDetail("field", "name")
	}
	if id.IsNil(d.OUID) {
		return apperror.NewValidation("organisational unit reference is required").
			WithDetail("field", "ouId")
	}
	return nil
}
