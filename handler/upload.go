package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/receipto/console/config"
	"github.com/receipto/console/model"
	"github.com/receipto/console/service"
)

type UploadHandler struct {
	queue  *service.UploadQueue
	config *config.UploadConfig
}

func NewUploadHandler(queue *service.UploadQueue, cfg *config.UploadConfig) *UploadHandler {
	return &UploadHandler{
		queue:  queue,
		config: cfg,
	}
}

// AddFiles accepts one or more files into the upload queue. Only JPEG, PNG
// and PDF are let through; rejected files are reported back by name without
// failing the accepted ones.
func (h *UploadHandler) AddFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	maxSize := int64(h.config.MaxFileSizeMB) * 1024 * 1024

	var incoming []service.IncomingFile
	var rejected []string
	for _, header := range files {
		contentType := detectContentType(header.Filename, header.Header.Get("Content-Type"))
		if !model.AcceptedContentTypes[contentType] {
			rejected = append(rejected, header.Filename)
			continue
		}
		if maxSize > 0 && header.Size > maxSize {
			rejected = append(rejected, header.Filename)
			continue
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file: " + header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file: " + header.Filename})
			return
		}

		incoming = append(incoming, service.IncomingFile{
			Filename:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Data:        data,
		})
	}

	if len(incoming) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Only JPEG, PNG and PDF files are allowed",
			"rejected": rejected,
		})
		return
	}

	added := h.queue.Add(incoming)

	c.JSON(http.StatusOK, gin.H{
		"added":    added,
		"rejected": rejected,
	})
}

// ListQueue returns the current session snapshot in insertion order
func (h *UploadHandler) ListQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.queue.Items()})
}

// RemoveFile removes a pending or failed item from the queue
func (h *UploadHandler) RemoveFile(c *gin.Context) {
	id := c.Param("id")

	err := h.queue.Remove(id)
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found in queue"})
	case errors.Is(err, service.ErrItemNotRemovable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove file"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "File removed"})
	}
}

// Submit kicks off a sequential upload pass over all pending and failed
// items. The pass runs in the background; clients watch progress through
// the queue snapshot and the event stream.
func (h *UploadHandler) Submit(c *gin.Context) {
	go h.queue.SubmitAll(context.Background())

	c.JSON(http.StatusAccepted, gin.H{"message": "Upload started"})
}

// detectContentType resolves the effective media type for a part, falling
// back to the file extension when the part header is missing or generic
func detectContentType(filename, headerType string) string {
	headerType = strings.TrimSpace(headerType)
	if headerType != "" && headerType != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(headerType); err == nil {
			return mediaType
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	}
	return headerType
}
