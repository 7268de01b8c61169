package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/store"
)

func (h *Handler) jobContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := h.JobTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func (h *Handler) runJob(c *gin.Context, task models.TaskType, triggeredBy string) {
	ctx, cancel := h.jobContext(c)
	defer cancel()

	var (
		result any
		err    error
	)
	switch task {
	case models.TaskAiTagging:
		result, err = h.Automation.RunTagging(ctx, triggeredBy)
	case models.TaskInsightGeneration:
		result, err = h.Automation.RunInsights(ctx, triggeredBy)
	case models.TaskSheetsExport:
		result, err = h.Automation.RunExport(ctx, triggeredBy)
	default:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown automation task", string(task))
		return
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(c, http.StatusGatewayTimeout, "JOB_TIMEOUT", "Automation run hit its deadline", result)
			return
		}
		writeError(c, http.StatusInternalServerError, "JOB_ERROR", "Automation run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Cron trigger endpoints, called by an external scheduler.

func (h *Handler) CronTagging(c *gin.Context) {
	h.runJob(c, models.TaskAiTagging, "cron")
}

func (h *Handler) CronInsights(c *gin.Context) {
	h.runJob(c, models.TaskInsightGeneration, "cron")
}

func (h *Handler) CronExport(c *gin.Context) {
	h.runJob(c, models.TaskSheetsExport, "cron")
}

var adminTasks = map[string]models.TaskType{
	"ai-tagging":        models.TaskAiTagging,
	"generate-insights": models.TaskInsightGeneration,
	"export-sheets":     models.TaskSheetsExport,
}

// @Summary Trigger an automation task
// @Tags admin
// @Produce json
// @Param task path string true "ai-tagging | generate-insights | export-sheets"
// @Success 200 {object} map[string]any
// @Router /api/admin/automation/{task} [post]
func (h *Handler) AutomationTrigger(c *gin.Context) {
	task, ok := adminTasks[c.Param("task")]
	if !ok {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown automation task", c.Param("task"))
		return
	}
	h.runJob(c, task, "admin")
}

func (h *Handler) AutomationStatus(c *gin.Context) {
	status, err := h.Automation.Status(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to load automation status", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": status})
}

func (h *Handler) InsightsList(c *gin.Context) {
	insights, err := h.Store.ListInsights(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list insights", err.Error())
		return
	}
	if insights == nil {
		insights = []models.AiInsight{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": insights})
}

func (h *Handler) UntaggedCount(c *gin.Context) {
	count, err := h.Store.CountUntagged(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to count untagged feedback", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"count": count}})
}

type UpdateStatusRequest struct {
	Status models.Status `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if !models.ValidStatus(req.Status) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", string(req.Status))
		return
	}

	updated, err := h.Store.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Feedback not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to update status", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

func (h *Handler) UpdateTags(c *gin.Context) {
	var req UpdateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "At least one tag is required", err.Error())
		return
	}

	id := c.Param("id")
	if err := h.Store.UpdateTags(c.Request.Context(), id, req.Tags, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Feedback not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to update tags", err.Error())
		return
	}

	updated, err := h.Store.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to reload feedback", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}
