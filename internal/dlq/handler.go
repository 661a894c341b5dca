package dlq

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"confide/internal/constants"
	"confide/internal/logger"
	"confide/pkg/errors"
)

// Handler exposes the operator API over the dead-letter store.
type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin/dlq")

	admin.GET("", h.List)
	admin.GET("/:id", h.Get)
	admin.POST("/:id/retry", h.Retry)
	admin.DELETE("/:id", h.Remove)
	admin.DELETE("", h.Drain)
}

// List returns a page of records. Defaults to the first page
// (records 0..49) when no range is supplied.
func (h *Handler) List(c *gin.Context) {
	start := intQuery(c, "start", 0)
	end := intQuery(c, "end", constants.DefaultDLQPageSize-1)

	records, total, err := h.service.List(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}

	jobs := make([]View, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, record.ToView())
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"jobs":  jobs,
	})
}

func (h *Handler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record.ToView())
}

func (h *Handler) Retry(c *gin.Context) {
	newJobID, err := h.service.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Re-enqueued for reprocessing",
		"newJobId": newJobID,
	})
}

func (h *Handler) Remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("DLQ job %s removed", id),
	})
}

func (h *Handler) Drain(c *gin.Context) {
	if _, err := h.service.Drain(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "DLQ drained",
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if !errors.IsNotFound(err) {
		h.logger.ErrorwCtx(c.Request.Context(), "DLQ operation failed",
			"path", c.FullPath(),
			"error", err.Error(),
		)
	}
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
