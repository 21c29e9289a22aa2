// Package credential manages stored credential records. A credential is
// a username/password pair parked in exactly one division's repository;
// the password is kept as a bcrypt hash and never leaves the service in
// plaintext.
package credential

import (
	"context"
	"strings"
	"time"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
)

// Credential represents a stored credential record.
type Credential struct {
	ID           id.ID     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Description  string    `db:"description" json:"description"`
	DivisionID   id.ID     `db:"division_id" json:"divisionId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
	Version      int       `db:"version" json:"version"`
}

// New creates a new credential record. The password hash is set by the
// service after validating the plaintext.
func New(username, description string, divisionID id.ID) *Credential {
	now := time.Now()
	return &Credential{
		ID:          id.New(),
		Username:    strings.TrimSpace(username),
		Description: strings.TrimSpace(description),
		DivisionID:  divisionID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Validate validates credential invariants.
func (c *Credential) Validate(ctx context.Context) error {
	if c.Username == "" {
		return apperror.NewValidation("credential username is required").
			WithDetail("field", "username")
	}
	if id.IsNil(c.DivisionID) {
		return apperror.NewValidation("division reference is required").
			WithDetail("field", "divisionId")
	}
	return nil
}

// CreateRequest carries the input for creating a credential.
type CreateRequest struct {
	Username    string
	Password    string
	Description string
	DivisionID  id.ID
}

// UpdateRequest carries a partial update. Nil fields stay unchanged.
type UpdateRequest struct {
	Username    *string
	Password    *string
	Description *string
	DivisionID  *id.ID
}
