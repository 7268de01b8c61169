package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/notify"
	"github.com/feedback-fusion/backend/internal/service"
	"github.com/feedback-fusion/backend/internal/store"
)

type Handler struct {
	Store      store.Backend
	Automation *service.Automation
	Notifier   notify.Notifier
	Taxonomy   models.Taxonomy
	Validator  *validator.Validate
	Logger     zerolog.Logger
	// JobTimeout bounds every triggered automation run.
	JobTimeout time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List feedback
// @Description All approved feature requests, most voted first
// @Tags feedback
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/feedback [get]
func (h *Handler) FeedbackList(c *gin.Context) {
	items, err := h.Store.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list feedback", err.Error())
		return
	}
	if items == nil {
		items = []models.Feedback{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

type CreateFeedbackRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	SubmittedBy string `json:"submittedBy"`
}

// @Summary Submit feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/feedback [post]
func (h *Handler) FeedbackCreate(c *gin.Context) {
	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	fieldErrs := h.Taxonomy.ValidateSubmission(req.Title, req.Description, req.Category, req.SubCategory)
	if len(fieldErrs) > 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", fieldErrs)
		return
	}

	created, err := h.Store.Create(c.Request.Context(), models.NewFeedback{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		SubCategory: req.SubCategory,
		SubmittedBy: strings.TrimSpace(req.SubmittedBy),
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to save feedback", err.Error())
		return
	}

	if h.Notifier != nil {
		h.Notifier.FeedbackSubmitted(c.Request.Context(), created)
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}

type VoteRequest struct {
	FeedbackID string `json:"feedbackId" validate:"required"`
	// UserID is any stable unique identifier; the product sends the
	// merchant's email.
	UserID string `json:"userId" validate:"required"`
}

// @Summary Toggle a vote
// @Description Casts the user's vote, or withdraws it if already cast
// @Tags votes
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/votes [post]
func (h *Handler) VoteToggle(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "feedbackId and userId are required", err.Error())
		return
	}

	ctx := c.Request.Context()
	userID, err := h.Store.UpsertUser(ctx, strings.ToLower(strings.TrimSpace(req.UserID)))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to resolve user", err.Error())
		return
	}

	updated, voted, err := h.Store.ToggleVote(ctx, req.FeedbackID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Feedback not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to toggle vote", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"id":    updated.ID,
		"votes": updated.Votes,
		"voted": voted,
	}})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
