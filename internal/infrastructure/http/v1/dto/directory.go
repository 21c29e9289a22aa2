package dto

import (
	"time"

	"credvault/internal/domain/directory/division"
	"credvault/internal/domain/directory/ou"
)

// CreateOURequest for provisioning an organisational unit.
type CreateOURequest struct {
	Name string `json:"name" binding:"required,min=3"`
}

// CreateDivisionRequest for provisioning a division under an OU.
type CreateDivisionRequest struct {
	Name string `json:"name" binding:"required,min=3"`
	OUID string `json:"ouId" binding:"required,uuid"`
}

// OUResponse represents an organisational unit in API responses.
// The division list is a derived view, attached when requested.
type OUResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Divisions []*DivisionResponse `json:"divisions,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// FromOU creates response from a domain OU.
func FromOU(u *ou.OrganisationalUnit) *OUResponse {
	return &OUResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// FromOUs maps an OU list.
func FromOUs(units []ou.OrganisationalUnit) []*OUResponse {
	out := make([]*OUResponse, len(units))
	for i := range units {
		out[i] = FromOU(&units[i])
	}
	return out
}

// DivisionResponse represents a division in API responses.
type DivisionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OUID      string    `json:"ouId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromDivision creates response from a domain division.
func FromDivision(d *division.Division) *DivisionResponse {
	return &DivisionResponse{
		ID:        d.ID.String(),
		Name:      d.Name,
		OUID:      d.OUID.String(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// FromDivisions maps a division list.
func FromDivisions(divisions []division.Division) []*DivisionResponse {
	out := make([]*DivisionResponse, len(divisions))
	for i := range divisions {
		out[i] = FromDivision(&divisions[i])
	}
	return out
}
