package appraisals

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/reports/export"
	"avaliar/appraisal-backend/internal/valuation"
)

// Handler handles HTTP requests for appraisals
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new appraisals handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers appraisal routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	appraisals := router.Group("/appraisals")
	{
		appraisals.POST("", h.createAppraisal)
		appraisals.GET("", h.listAppraisals)
		appraisals.GET("/:id", h.getAppraisal)
		appraisals.GET("/:id/export", h.exportAppraisal)
	}
}

// createAppraisal handles POST /api/v1/appraisals
func (h *Handler) createAppraisal(c *gin.Context) {
	var req CreateAppraisalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.CreateAppraisal(c.Request.Context(), req)
	if err == nil {
		c.JSON(http.StatusCreated, view)
		return
	}

	var validationErr *valuation.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validationErr.Field})
	case errors.Is(err, ErrInvalidBoundary):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "boundary"})
	case errors.Is(err, valuation.ErrInsufficientSamples):
		// failures during the search mean retrying may help
		status := http.StatusUnprocessableEntity
		if view != nil && view.Result.Degraded() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error(), "appraisal": view})
	default:
		h.logger.Error("Failed to create appraisal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// listAppraisals handles GET /api/v1/appraisals
func (h *Handler) listAppraisals(c *gin.Context) {
	filters := ListFilters{
		City:     c.Query("city"),
		State:    c.Query("state"),
		Status:   c.Query("status"),
		Page:     h.getIntParam(c, "page", 1),
		PageSize: h.getIntParam(c, "page_size", 20),
	}
	if category := c.Query("category"); category != "" {
		filters.Category = valuation.ParseCategory(category)
		if !filters.Category.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category must be URBAN or RURAL"})
			return
		}
	}

	response, err := h.service.ListAppraisals(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list appraisals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// getAppraisal handles GET /api/v1/appraisals/:id
func (h *Handler) getAppraisal(c *gin.Context) {
	view, err := h.service.GetAppraisal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrAppraisalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appraisal not found"})
			return
		}
		h.logger.Error("Failed to get appraisal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// exportAppraisal handles GET /api/v1/appraisals/:id/export?format=csv|xlsx|pdf
func (h *Handler) exportAppraisal(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", "pdf"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.service.ExportAppraisal(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		if errors.Is(err, ErrAppraisalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appraisal not found"})
			return
		}
		h.logger.Error("Failed to export appraisal", zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	if file.Location != "" {
		c.Header("X-Archive-Location", file.Location)
	}
	if file.DownloadURL != "" {
		c.Header("X-Archive-URL", file.DownloadURL)
	}
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
