package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"credvault/internal/core/apperror"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/internal/domain/auth"
	"credvault/internal/domain/directory/division"
	"credvault/internal/domain/directory/ou"
	"credvault/internal/infrastructure/http/v1/dto"
	"credvault/internal/infrastructure/storage/postgres"
)

// AuditReader retrieves recorded mutation history.
type AuditReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AdminHandler handles the admin surface: user administration,
// membership assignment and directory provisioning. The whole group is
// gated by middleware.RequireAdmin; the services re-check through the
// authorization engine.
type AdminHandler struct {
	*BaseHandler
	auth      *auth.Service
	ous       *ou.Service
	divisions *division.Service
	audit     AuditReader
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(base *BaseHandler, authService *auth.Service, ous *ou.Service, divisions *division.Service, audit AuditReader) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		auth:        authService,
		ous:         ous,
		divisions:   divisions,
		audit:       audit,
	}
}

// --- Users ---

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UserListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	users, total, err := h.auth.ListUsers(ctx, auth.UserFilter{
		Search: req.Search,
		Role:   security.Role(req.Role),
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.UserResponse, len(users))
	for i := range users {
		items[i] = dto.FromUser(&users[i])
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: total})
}

// GetUser handles GET /admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// --- Assignments ---

// Assign handles POST /admin/assign
func (h *AdminHandler) Assign(c *gin.Context) {
	h.handleAssignment(c, true)
}

// Unassign handles POST /admin/unassign
func (h *AdminHandler) Unassign(c *gin.Context) {
	h.handleAssignment(c, false)
}

func (h *AdminHandler) handleAssignment(c *gin.Context, assign bool) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.AssignRequest
	if !h.BindJSON(c, &req) {
		return
	}

	userID, err := id.Parse(req.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid user id"))
		return
	}

	// Exactly one target
	if (req.DivisionID == "") == (req.OUID == "") {
		h.Error(c, apperror.NewValidation("provide either divisionId or ouId"))
		return
	}

	switch {
	case req.DivisionID != "":
		divisionID, parseErr := id.Parse(req.DivisionID)
		if parseErr != nil {
			h.Error(c, apperror.NewValidation("invalid division id"))
			return
		}
		if assign {
			err = h.auth.AssignDivision(ctx, p, userID, divisionID)
		} else {
			err = h.auth.UnassignDivision(ctx, p, userID, divisionID)
		}
	default:
		ouID, parseErr := id.Parse(req.OUID)
		if parseErr != nil {
			h.Error(c, apperror.NewValidation("invalid ou id"))
			return
		}
		if assign {
			err = h.auth.AssignOU(ctx, p, userID, ouID)
		} else {
			err = h.auth.UnassignOU(ctx, p, userID, ouID)
		}
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	msg := "assignment removed"
	if assign {
		msg = "assignment created"
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: msg})
}

// ChangeRole handles POST /admin/change-role
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	userID, err := id.Parse(req.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid user id"))
		return
	}

	if err := h.auth.ChangeRole(ctx, p, userID, security.Role(req.Role)); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "role changed"})
}

// --- Directory provisioning ---

// CreateOU handles POST /admin/ous
func (h *AdminHandler) CreateOU(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOURequest
	if !h.BindJSON(c, &req) {
		return
	}

	unit, err := h.ous.Create(ctx, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromOU(unit))
}

// ListOUs handles GET /admin/ous
func (h *AdminHandler) ListOUs(c *gin.Context) {
	ctx := c.Request.Context()

	units, err := h.ous.List(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromOUs(units)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// DeleteOU handles DELETE /admin/ous/:id
func (h *AdminHandler) DeleteOU(c *gin.Context) {
	ctx := c.Request.Context()

	ouID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.ous.Delete(ctx, ouID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateDivision handles POST /admin/divisions
func (h *AdminHandler) CreateDivision(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDivisionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ouID, err := id.Parse(req.OUID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid ou id"))
		return
	}

	div, err := h.divisions.Create(ctx, req.Name, ouID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromDivision(div))
}

// ListDivisions handles GET /admin/divisions with an optional ouId filter.
func (h *AdminHandler) ListDivisions(c *gin.Context) {
	ctx := c.Request.Context()

	ouID := id.Nil()
	if raw := c.Query("ouId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid ou id").WithDetail("param", "ouId"))
			return
		}
		ouID = parsed
	}

	divisions, err := h.divisions.List(ctx, ouID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromDivisions(divisions)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// DeleteDivision handles DELETE /admin/divisions/:id
func (h *AdminHandler) DeleteDivision(c *gin.Context) {
	ctx := c.Request.Context()

	divisionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.divisions.Delete(ctx, divisionID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AuditHistory handles GET /admin/audit/:entityType/:id with an
// optional limit query parameter (default 50, max 200).
func (h *AdminHandler) AuditHistory(c *gin.Context) {
	ctx := c.Request.Context()

	entityType := c.Param("entityType")
	if entityType == "" {
		h.Error(c, apperror.NewValidation("entity type is required"))
		return
	}

	entityID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.Error(c, apperror.NewValidation("invalid limit").WithDetail("param", "limit"))
			return
		}
		limit = parsed
	}
	if limit > 200 {
		limit = 200
	}

	entries, err := h.audit.GetEntityHistory(ctx, entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromAuditEntries(entries)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)

	rg.POST("/assign", h.Assign)
	rg.POST("/unassign", h.Unassign)
	rg.POST("/change-role", h.ChangeRole)

	rg.POST("/ous", h.CreateOU)
	rg.GET("/ous", h.ListOUs)
	rg.DELETE("/ous/:id", h.DeleteOU)

	rg.POST("/divisions", h.CreateDivision)
	rg.GET("/divisions", h.ListDivisions)
	rg.DELETE("/divisions/:id", h.DeleteDivision)

	rg.GET("/audit/:entityType/:id", h.AuditHistory)
}
