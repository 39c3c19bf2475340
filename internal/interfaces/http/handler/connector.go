package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

// ConnectorHandler serves mailbox connector management and sync endpoints
type ConnectorHandler struct {
	BaseHandler
	connectors *appmailbox.ConnectorService
	sync       *appmailbox.SyncService
	logger     *zap.Logger
}

// NewConnectorHandler creates a new ConnectorHandler
func NewConnectorHandler(connectors *appmailbox.ConnectorService, sync *appmailbox.SyncService, logger *zap.Logger) *ConnectorHandler {
	return &ConnectorHandler{
		connectors: connectors,
		sync:       sync,
		logger:     logger,
	}
}

// RegisterRoutes registers the connector endpoints
func (h *ConnectorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conns := rg.Group("/connectors")
	{
		conns.POST("", h.Create)
		conns.GET("", h.List)
		conns.GET("/:id", h.Get)
		conns.PUT("/:id", h.Update)
		conns.DELETE("/:id", h.Delete)
		conns.POST("/:id/reactivate", h.Reactivate)
		conns.POST("/:id/sync", h.Sync)
	}
}

// Create handles POST /connectors
func (h *ConnectorHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req appmailbox.CreateConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.connectors.Create(c.Request.Context(), tenantID, getActorID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update handles PUT /connectors/:id
func (h *ConnectorHandler) Update(c *gin.Context) {
	tenantID, connID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req appmailbox.UpdateConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.connectors.Update(c.Request.Context(), tenantID, connID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /connectors/:id
func (h *ConnectorHandler) Get(c *gin.Context) {
	tenantID, connID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.connectors.Get(c.Request.Context(), tenantID, connID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /connectors
func (h *ConnectorHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	resp, err := h.connectors.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /connectors/:id
func (h *ConnectorHandler) Delete(c *gin.Context) {
	tenantID, connID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.connectors.Delete(c.Request.Context(), tenantID, connID, getActorID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Reactivate handles POST /connectors/:id/reactivate
func (h *ConnectorHandler) Reactivate(c *gin.Context) {
	tenantID, connID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.connectors.Reactivate(c.Request.Context(), tenantID, connID, getActorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Sync handles POST /connectors/:id/sync
// The ownership check goes through ConnectorService before the run starts,
// so a connector from another tenant cannot be polled on demand.
func (h *ConnectorHandler) Sync(c *gin.Context) {
	tenantID, connID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if _, err := h.connectors.Get(c.Request.Context(), tenantID, connID); err != nil {
		h.HandleError(c, err)
		return
	}

	summary, err := h.sync.RunSync(c.Request.Context(), connID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *ConnectorHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
