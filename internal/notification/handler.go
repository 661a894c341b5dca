package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"confide/internal/logger"
	"confide/pkg/errors"
	"confide/pkg/ratelimit"
)

// QueueInspector exposes the live queue state for the stats endpoint.
type QueueInspector interface {
	Depth() int
	Running() bool
}

// DeadLetterCounter exposes the dead-letter store size for the stats
// endpoint.
type DeadLetterCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	service *Service
	queue   QueueInspector
	dlq     DeadLetterCounter
	logger  logger.Logger
}

func NewHandler(service *Service, queue QueueInspector, dlq DeadLetterCounter, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		queue:   queue,
		dlq:     dlq,
		logger:  log,
	}
}

// RegisterRoutes mounts the trigger API. Single notifications and stats
// ride the method-class limits; broadcast gets a stricter route override
// because one call fans out to many jobs.
func (h *Handler) RegisterRoutes(router *gin.Engine, limiter *ratelimit.Limiter) {
	v1 := router.Group("/api/v1")

	v1.POST("/notifications", limiter.Middleware(), h.Create)
	v1.POST("/notifications/broadcast", limiter.Override(3, 5*time.Minute), h.Broadcast)
	v1.GET("/queue/stats", limiter.Middleware(), h.QueueStats)
}

type createNotificationRequest struct {
	UserID string `json:"userId" binding:"required"`
	Type   string `json:"type" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Body   string `json:"body"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.ErrValidation.WithDetail("message", err.Error())
		c.JSON(appErr.Status, errors.ToErrorResponse(appErr))
		return
	}

	jobID, err := h.service.NotifyDirect(c.Request.Context(), req.UserID, Type(req.Type), req.Title, req.Body)
	if err != nil {
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
}

type broadcastRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
	Title   string   `json:"title" binding:"required"`
	Body    string   `json:"body"`
}

func (h *Handler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.ErrValidation.WithDetail("message", err.Error())
		c.JSON(appErr.Status, errors.ToErrorResponse(appErr))
		return
	}

	ctx := c.Request.Context()
	enqueued := 0
	for _, userID := range req.UserIDs {
		if userID == "" {
			continue
		}
		err := h.service.NotifySystem(ctx, SystemEvent{
			UserID: userID,
			Title:  req.Title,
			Body:   req.Body,
		})
		if err != nil {
			c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
			return
		}
		enqueued++
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": enqueued})
}

func (h *Handler) QueueStats(c *gin.Context) {
	dlqCount, err := h.dlq.Count(c.Request.Context())
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Failed to count dead-letter records",
			"error", err.Error(),
		)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queueDepth": h.queue.Depth(),
		"running":    h.queue.Running(),
		"dlqCount":   dlqCount,
	})
}
