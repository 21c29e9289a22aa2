package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"credvault/internal/domain/credential"
	"credvault/internal/infrastructure/http/v1/dto"
)

// CredentialHandler handles credential record endpoints.
type CredentialHandler struct {
	*BaseHandler
	service *credential.Service
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(base *BaseHandler, service *credential.Service) *CredentialHandler {
	return &CredentialHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /credentials
func (h *CredentialHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	creds, err := h.service.List(ctx, p)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromCredentials(creds)
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// Get handles GET /credentials/:id
func (h *CredentialHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}
	credID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	cred, err := h.service.Get(ctx, p, credID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCredential(cred))
}

// Create handles POST /credentials
func (h *CredentialHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.CreateCredentialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToCreateRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	cred, err := h.service.Create(ctx, p, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromCredential(cred))
}

// Update handles PUT /credentials/:id
func (h *CredentialHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}
	credID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCredentialRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToUpdateRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	cred, err := h.service.Update(ctx, p, credID, domainReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCredential(cred))
}

// Delete handles DELETE /credentials/:id
func (h *CredentialHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	p, ok := h.Principal(c)
	if !ok {
		return
	}
	credID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, p, credID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers credential routes.
func (h *CredentialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
