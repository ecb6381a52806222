package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/application/engine"
	"github.com/mediaops/content-approval/internal/application/registry"
	"github.com/mediaops/content-approval/internal/domain/workflow"
)

// Handler exposes the engine's operations over HTTP. It translates domain
// errors to status codes and does nothing else.
type Handler struct {
	engine   *engine.Engine
	registry *registry.Registry
	logger   *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(eng *engine.Engine, reg *registry.Registry, logger *zap.Logger) *Handler {
	return &Handler{engine: eng, registry: reg, logger: logger}
}

type startWorkflowRequest struct {
	ContentID  string `json:"content_id" binding:"required"`
	WorkflowID string `json:"workflow_id"`
}

// StartWorkflow handles POST /api/v1/workflows/start.
func (h *Handler) StartWorkflow(c *gin.Context) {
	var req startWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exec, err := h.engine.StartWorkflow(c.Request.Context(), req.ContentID, req.WorkflowID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exec)
}

type stageActionRequest struct {
	StageID  string `json:"stage_id" binding:"required"`
	UserID   string `json:"user_id" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Comments string `json:"comments"`
}

// ProcessStageAction handles POST /api/v1/content/:id/action.
func (h *Handler) ProcessStageAction(c *gin.Context) {
	var req stageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.engine.ProcessStageAction(c.Request.Context(), c.Param("id"), req.StageID, req.UserID,
		engine.StageAction{Type: req.Type, Comments: req.Comments})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelWorkflow handles POST /api/v1/content/:id/cancel.
func (h *Handler) CancelWorkflow(c *gin.Context) {
	// Body is optional for cancellation.
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.engine.CancelWorkflow(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// Resubmit handles POST /api/v1/content/:id/resubmit.
func (h *Handler) Resubmit(c *gin.Context) {
	if err := h.engine.ResubmitAfterRevision(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resubmitted"})
}

// GetExecution handles GET /api/v1/content/:id/execution.
func (h *Handler) GetExecution(c *gin.Context) {
	exec, err := h.engine.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

// ListDefinitions handles GET /api/v1/workflows.
func (h *Handler) ListDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}

// ReloadDefinitions handles POST /api/v1/workflows/reload.
func (h *Handler) ReloadDefinitions(c *gin.Context) {
	if err := h.registry.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"active_executions": h.engine.ActiveCount(),
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, workflow.ErrNoWorkflowFound),
		errors.Is(err, workflow.ErrNoActiveExecution):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrAlreadyActive),
		errors.Is(err, workflow.ErrAlreadyActed),
		errors.Is(err, workflow.ErrStageMismatch),
		errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrUnauthorized):
		status = http.StatusForbidden
	default:
		h.logger.Error("Request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
