package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/service"
)

// DocumentHandler accepts uploaded documents and queues them for processing.
type DocumentHandler struct {
	queue     *service.QueueWorker
	uploadDir string
	maxBytes  int64
}

// NewDocumentHandler creates a new DocumentHandler. When uploadDir is set,
// every accepted upload is also written there as <uuid>_<filename>.
func NewDocumentHandler(queue *service.QueueWorker, uploadDir string, maxFileSizeMB int64) *DocumentHandler {
	return &DocumentHandler{queue: queue, uploadDir: uploadDir, maxBytes: maxFileSizeMB << 20}
}

// Upload handles POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || !service.Supported(name) {
		HandleError(c, domain.ErrUnsupportedFileType)
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	data, err := readLimited(file, h.maxBytes)
	if err != nil {
		HandleError(c, err)
		return
	}
	if len(data) == 0 {
		HandleError(c, domain.ErrEmptyDocument)
		return
	}

	identity := strings.TrimSpace(c.PostForm("identity"))
	if identity == "" {
		identity = name
	}

	if h.uploadDir != "" {
		h.save(name, data)
	}

	job, err := h.queue.Enqueue(service.Document{Identity: identity, FileName: name, Data: data})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, job)
}

func (h *DocumentHandler) save(name string, data []byte) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		logrus.Warnf("handler.DocumentHandler.Upload: creating upload dir: %v", err)
		return
	}
	path := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New(), name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		logrus.Warnf("handler.DocumentHandler.Upload: saving %s: %v", name, err)
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrFileTooLarge
	}
	return data, nil
}

