package dto

// AssignRequest links or unlinks a user and a division or OU. Exactly
// one of DivisionID and OUID must be set.
type AssignRequest struct {
	UserID     string `json:"userId" binding:"required,uuid"`
	DivisionID string `json:"divisionId" binding:"omitempty,uuid"`
	OUID       string `json:"ouId" binding:"omitempty,uuid"`
}

// ChangeRoleRequest overwrites a user's role.
type ChangeRoleRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required"`
}

// UserListRequest narrows the admin user listing.
type UserListRequest struct {
	PaginationRequest
	Search string `form:"search"`
	Role   string `form:"role"`
}
