package dto

import (
	"time"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/domain/credential"
)

// CreateCredentialRequest for creating a credential record.
type CreateCredentialRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	Description string `json:"description"`
	DivisionID  string `json:"divisionId" binding:"required,uuid"`
}

// ToCreateRequest converts to the domain request.
func (r *CreateCredentialRequest) ToCreateRequest() (credential.CreateRequest, error) {
	divisionID, err := id.Parse(r.DivisionID)
	if err != nil {
		return credential.CreateRequest{}, apperror.NewValidation("invalid division id").
			WithDetail("field", "divisionId")
	}
	return credential.CreateRequest{
		Username:    r.Username,
		Password:    r.Password,
		Description: r.Description,
		DivisionID:  divisionID,
	}, nil
}

// UpdateCredentialRequest for a partial update. Omitted fields stay
// unchanged.
type UpdateCredentialRequest struct {
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	Description *string `json:"description"`
	DivisionID  *string `json:"divisionId"`
}

// ToUpdateRequest converts to the domain request.
func (r *UpdateCredentialRequest) ToUpdateRequest() (credential.UpdateRequest, error) {
	req := credential.UpdateRequest{
		Username:    r.Username,
		Password:    r.Password,
		Description: r.Description,
	}
	if r.DivisionID != nil {
		divisionID, err := id.Parse(*r.DivisionID)
		if err != nil {
			return credential.UpdateRequest{}, apperror.NewValidation("invalid division id").
				WithDetail("field", "divisionId")
		}
		req.DivisionID = &divisionID
	}
	return req, nil
}

// CredentialResponse represents a credential in API responses.
// The stored password hash is never included.
type CredentialResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	DivisionID  string    `json:"divisionId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int       `json:"version"`
}

// FromCredential creates response from a domain credential.
func FromCredential(c *credential.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:          c.ID.String(),
		Username:    c.Username,
		Description: c.Description,
		DivisionID:  c.DivisionID.String(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// FromCredentials maps a credential list.
func FromCredentials(creds []credential.Credential) []*CredentialResponse {
	out := make([]*CredentialResponse, len(creds))
	for i := range creds {
		out[i] = FromCredential(&creds[i])
	}
	return out
}
