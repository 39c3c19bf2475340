package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/ledgerdocs/backend/internal/interfaces/http/dto"
)

// DocumentHandler serves the document pipeline endpoints
type DocumentHandler struct {
	BaseHandler
	ingestion  *appdocument.IngestionService
	correction *appdocument.CorrectionService
	validation *appdocument.ValidationService
	logger     *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(
	ingestion *appdocument.IngestionService,
	correction *appdocument.CorrectionService,
	validation *appdocument.ValidationService,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		ingestion:  ingestion,
		correction: correction,
		validation: validation,
		logger:     logger,
	}
}

// RegisterRoutes registers the document endpoints
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("", h.Upload)
		docs.GET("", h.List)
		docs.POST("/revalidate", h.RevalidateAll)
		docs.GET("/:id", h.Get)
		docs.DELETE("/:id", h.Delete)
		docs.GET("/:id/download", h.Download)
		docs.POST("/:id/replace", h.Replace)
		docs.GET("/:id/versions", h.ListVersions)
		docs.POST("/:id/corrections", h.Correct)
		docs.GET("/:id/validation", h.GetValidation)
	}
}

// Upload handles POST /documents
// Multipart form: file (required), direction (incoming|outgoing, required)
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	direction := document.Direction(c.PostForm("direction"))
	if direction != document.DirectionIncoming && direction != document.DirectionOutgoing {
		h.BadRequest(c, "direction must be incoming or outgoing")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "failed to read uploaded file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resp, err := h.ingestion.Ingest(c.Request.Context(), appdocument.IngestRequest{
		TenantID:  tenantID,
		ActorID:   getActorID(c),
		Bytes:     data,
		MimeType:  mimeType,
		Direction: direction,
		Channel:   document.ChannelUpload,
		Meta:      document.ChannelMetadata{Filename: fileHeader.Filename},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// List handles GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	filter.Filters = map[string]interface{}{}
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.Direction != "" {
		filter.Filters["direction"] = req.Direction
	}
	if req.Severity != "" {
		filter.Filters["severity"] = req.Severity
	}

	page, err := h.ingestion.ListDocuments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.ingestion.GetDocument(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Download handles GET /documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	url, err := h.ingestion.DownloadURL(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"url": url})
}

// Delete handles DELETE /documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.ingestion.DeleteDocument(c.Request.Context(), tenantID, getActorID(c), docID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// replaceRequest links a replacement document to the one it supersedes
type replaceRequest struct {
	ReplacementID string `json:"replacement_id" binding:"required,uuid"`
}

// Replace handles POST /documents/:id/replace
func (h *DocumentHandler) Replace(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	replacementID, err := uuid.Parse(req.ReplacementID)
	if err != nil {
		h.BadRequest(c, "replacement_id must be a UUID")
		return
	}

	if err := h.ingestion.Replace(c.Request.Context(), tenantID, getActorID(c), docID, replacementID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListVersions handles GET /documents/:id/versions
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	versions, err := h.correction.ListVersions(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, versions)
}

// correctionRequest carries a manual field patch
type correctionRequest struct {
	Patch  document.FieldPatch `json:"patch" binding:"required"`
	Reason string              `json:"reason" binding:"required"`
}

// Correct handles POST /documents/:id/corrections
func (h *DocumentHandler) Correct(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	actorID := getActorID(c)
	if actorID == nil {
		h.Unauthorized(c, "Corrections require an acting user")
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	version, err := h.correction.ApplyCorrection(c.Request.Context(), tenantID, docID, *actorID, req.Patch, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, version)
}

// GetValidation handles GET /documents/:id/validation
func (h *DocumentHandler) GetValidation(c *gin.Context) {
	tenantID, docID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	outcome, err := h.validation.LatestResult(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// RevalidateAll handles POST /documents/revalidate
func (h *DocumentHandler) RevalidateAll(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	summary, err := h.validation.RevalidateAll(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// tenantAndID extracts the tenant and the :id path parameter
func (h *DocumentHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
