package handler

import (
	"github.com/gin-gonic/gin"

	"epcsync/internal/fingerprint"
)

// RecordHandler exposes the fingerprint store.
type RecordHandler struct {
	tracker *fingerprint.Tracker
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(tracker *fingerprint.Tracker) *RecordHandler {
	return &RecordHandler{tracker: tracker}
}

// List handles GET /api/v1/records
func (h *RecordHandler) List(c *gin.Context) {
	records, err := h.tracker.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondList(c, records, len(records))
}

// Clear handles DELETE /api/v1/records. Every identity is processed again on
// its next submission.
func (h *RecordHandler) Clear(c *gin.Context) {
	n, err := h.tracker.Clear(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": n})
}
