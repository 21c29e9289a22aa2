package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"credvault/internal/core/id"
	"credvault/internal/domain/credential"
	"credvault/internal/domain/directory/division"
	"credvault/internal/infrastructure/http/v1/dto"
)

// DivisionHandler handles division endpoints for regular users.
// Provisioning lives on the admin surface.
type DivisionHandler struct {
	*BaseHandler
	divisions   *division.Service
	credentials *credential.Service
}

// NewDivisionHandler creates a new division handler.
func NewDivisionHandler(base *BaseHandler, divisions *division.Service, credentials *credential.Service) *DivisionHandler {
	return &DivisionHandler{
		BaseHandler: base,
		divisions:   divisions,
		credentials: credentials,
	}
}

// List handles GET /divisions. Admins see the whole catalog, everyone
// else their own memberships.
func (h *DivisionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var (
		divisions []division.Division
		err       error
	)
	if p.IsAdmin() {
		divisions, err = h.divisions.List(ctx, id.Nil())
	} else {
		divisions, err = h.divisions.ListByIDs(ctx, p.DivisionIDs)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromDivisions(divisions)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// Credentials handles GET /divisions/:id/credentials.
func (h *DivisionHandler) Credentials(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}
	divisionID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	creds, err := h.credentials.ListByDivision(ctx, p, divisionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromCredentials(creds)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// RegisterRoutes registers division routes.
func (h *DivisionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id/credentials", h.Credentials)
}
