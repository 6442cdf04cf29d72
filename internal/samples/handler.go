package samples

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/valuation"
)

// maxImportSize bounds uploaded workbooks
const maxImportSize = 10 << 20

// Handler handles HTTP requests for sample management
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new samples handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers sample routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	samples := router.Group("/samples")
	{
		samples.POST("", h.createSample)
		samples.GET("", h.listSamples)
		samples.POST("/import", h.importSamples)
		samples.GET("/:id", h.getSample)
		samples.DELETE("/:id", h.deleteSample)
	}
}

// createSample handles POST /api/v1/samples
func (h *Handler) createSample(c *gin.Context) {
	var req CreateSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample, err := h.service.CreateSample(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidSample) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create sample", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sample)
}

// listSamples handles GET /api/v1/samples
func (h *Handler) listSamples(c *gin.Context) {
	filters := ListFilters{
		City:     c.Query("city"),
		State:    c.Query("state"),
		Subtype:  c.Query("subtype"),
		Page:     h.getIntParam(c, "page", 1),
		PageSize: h.getIntParam(c, "page_size", 50),
	}
	if category := c.Query("category"); category != "" {
		filters.Category = valuation.ParseCategory(category)
		if !filters.Category.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category must be URBAN or RURAL"})
			return
		}
	}

	response, err := h.service.ListSamples(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list samples", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// getSample handles GET /api/v1/samples/:id
func (h *Handler) getSample(c *gin.Context) {
	sample, err := h.service.GetSample(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrSampleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sample not found"})
			return
		}
		h.logger.Error("Failed to get sample", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sample)
}

// deleteSample handles DELETE /api/v1/samples/:id
func (h *Handler) deleteSample(c *gin.Context) {
	if err := h.service.DeleteSample(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrSampleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sample not found"})
			return
		}
		h.logger.Error("Failed to delete sample", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// importSamples handles POST /api/v1/samples/import (multipart field "file")
func (h *Handler) importSamples(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.service.ImportSamples(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, ErrInvalidWorkbook) {
			h.logger.Warn("Sample import rejected", zap.String("file", fileHeader.Filename), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to import samples", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
