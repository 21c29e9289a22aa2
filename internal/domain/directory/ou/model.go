// Package ou provides the organisational unit catalog. OUs are the
// top-level grouping; each contains one or more divisions.
package ou

import (
	"context"
	"strings"
	"time"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

// OrganisationalUnit represents a top-level grouping of divisions.
//
// The list of divisions under an OU is a derived view queried from the
// divisions table by owning foreign key; no back-link array is persisted.
type OrganisationalUnit struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Version   int       `db:"version" json:"version"`
}

// New creates a new OU.
func New(name string) *OrganisationalUnit {
	now := time.Now()
	return &OrganisationalUnit{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate validates OU invariants.
func (o *OrganisationalUnit) Validate(ctx context.Context) error {
	if len(o.Name) < 3 {
		return apperror.NewValidation("organisational unit name must be at least 3 characters long").
			WithDetail("field", "name")
	}
	return nil
}
