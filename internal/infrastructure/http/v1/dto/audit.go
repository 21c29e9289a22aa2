package dto

import (
	"encoding/json"
	"time"

	"credvault/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse is one audit log entry. Changes are always
// returned decompressed.
type AuditEntryResponse struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	Username   string          `json:"username,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromAuditEntry converts an audit entry to response DTO.
func FromAuditEntry(e *postgres.AuditEntry) *AuditEntryResponse {
	return &AuditEntryResponse{
		ID:         e.ID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID.String(),
		Action:     e.Action,
		UserID:     e.UserID,
		Username:   e.Username,
		Changes:    e.Changes,
		CreatedAt:  e.CreatedAt,
	}
}

// FromAuditEntries converts a list of audit entries to response DTOs.
func FromAuditEntries(entries []postgres.AuditEntry) []*AuditEntryResponse {
	result := make([]*AuditEntryResponse, len(entries))
	for i := range entries {
		result[i] = FromAuditEntry(&entries[i])
	}
	return result
}
