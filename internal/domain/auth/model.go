// Package auth provides identity, authentication and user-assignment logic.
package auth

import (
	"context"
	"strings"
	"time"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// User represents a system user.
//
// Division and OU membership live in join tables; the slices below are
// loaded relations, not persisted columns. Users are never hard-deleted:
// the Deleted flag plus Status gate access instead.
type User struct {
	ID           id.ID         `db:"id" json:"id"`
	Username     string        `db:"username" json:"username"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Role         security.Role `db:"role" json:"role"`
	Status       UserStatus    `db:"status" json:"status"`
	Deleted      bool          `db:"deleted" json:"-"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
	Version      int           `db:"version" json:"version"`

	// Loaded relations
	DivisionIDs []id.ID `db:"-" json:"divisionIds,omitempty"`
	OUIDs       []id.ID `db:"-" json:"ouIds,omitempty"`
}

// NewUser creates a new user with the default role.
func NewUser(username, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           id.New(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Role:         security.RoleNormal,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// Validate validates user data.
func (u *User) Validate(ctx context.Context) error {
	if len(u.Username) < 3 {
		return apperror.NewValidation("username must be at least 3 characters long").
			WithDetail("field", "username")
	}
	if !security.ValidRole(u.Role) {
		return apperror.NewValidation("invalid role").
			WithDetail("field", "role").
			WithDetail("value", string(u.Role))
	}
	return nil
}

// CanLogin checks if the account may authenticate.
func (u *User) CanLogin() error {
	if u.Deleted || u.Status == StatusInactive {
		return apperror.NewForbidden("account is inactive or deleted")
	}
	return nil
}

// Principal builds the authorization snapshot for this user.
// DivisionIDs must be loaded before calling.
func (u *User) Principal() security.Principal {
	return security.Principal{
		UserID:      u.ID,
		Role:        u.Role,
		DivisionIDs: u.DivisionIDs,
	}
}

// Credentials for login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Search string
	Role   security.Role
	Limit  int
	Offset int
}
