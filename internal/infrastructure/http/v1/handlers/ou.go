package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"credvault/internal/core/id"
	"credvault/internal/domain/auth"
	"credvault/internal/domain/directory/ou"
	"credvault/internal/infrastructure/http/v1/dto"
)

// OUHandler handles organisational unit endpoints for regular users.
type OUHandler struct {
	*BaseHandler
	ous  *ou.Service
	auth *auth.Service
}

// NewOUHandler creates a new OU handler.
func NewOUHandler(base *BaseHandler, ous *ou.Service, authService *auth.Service) *OUHandler {
	return &OUHandler{
		BaseHandler: base,
		ous:         ous,
		auth:        authService,
	}
}

// List handles GET /ous. The visibility set is the union of direct OU
// assignments and the OUs owning the caller's divisions; admins see the
// whole catalog.
func (h *OUHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var (
		units []ou.OrganisationalUnit
		err   error
	)
	if p.IsAdmin() {
		units, err = h.ous.List(ctx)
	} else {
		var visible []id.ID
		visible, err = h.auth.VisibleOUIDs(ctx, p.UserID)
		if err == nil {
			units, err = h.ous.ListByIDs(ctx, visible)
		}
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromOUs(units)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// RegisterRoutes registers OU routes.
func (h *OUHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}
