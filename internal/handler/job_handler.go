package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"epcsync/internal/domain"
	"epcsync/internal/jobs"
	"epcsync/internal/service"
)

// JobHandler exposes job status and the review actions. Identities that
// contain slashes are passed URL-encoded.
type JobHandler struct {
	registry *jobs.Registry
	pipeline *service.Pipeline
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(registry *jobs.Registry, pipeline *service.Pipeline) *JobHandler {
	return &JobHandler{registry: registry, pipeline: pipeline}
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	all := h.registry.List()
	if state := c.Query("status"); state != "" {
		filtered := make([]*domain.Job, 0, len(all))
		for _, j := range all {
			if string(j.State) == state {
				filtered = append(filtered, j)
			}
		}
		all = filtered
	}
	RespondList(c, all, len(all))
}

// Get handles GET /api/v1/jobs/:identity
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.registry.Get(c.Param("identity"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// Approve handles POST /api/v1/jobs/:identity/approve. An optional JSON body
// {"record": {...}} replaces the extracted record before submission.
func (h *JobHandler) Approve(c *gin.Context) {
	var req struct {
		Record *domain.CatalogRecord `json:"record"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be {\"record\": {\"groups\": [...]}}")
			return
		}
	}

	// Submission outlives the request; a dropped client must not leave the
	// catalog half written.
	result, err := h.pipeline.Approve(context.WithoutCancel(c.Request.Context()), c.Param("identity"), req.Record)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Discard handles POST /api/v1/jobs/:identity/discard
func (h *JobHandler) Discard(c *gin.Context) {
	if err := h.pipeline.Discard(c.Param("identity")); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "job discarded"})
}

// Cancel handles POST /api/v1/jobs/:identity/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	if err := h.registry.Cancel(c.Param("identity")); err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"message": "cancellation requested"})
}

// ClearHistory handles DELETE /api/v1/history. Only finished jobs are removed.
func (h *JobHandler) ClearHistory(c *gin.Context) {
	RespondOK(c, gin.H{"removed": h.registry.Clear()})
}
