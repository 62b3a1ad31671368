// Package handler provides HTTP handlers for the document QA service.
package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docrag/internal/model"
	"github.com/kart-io/docrag/internal/rag/biz"
	"github.com/kart-io/docrag/internal/rag/store"
)

// queryTimeout bounds the retrieval-and-generation pipeline per request.
const queryTimeout = 60 * time.Second

// Accepted document formats. Both the declared content type and the
// file extension must match.
var (
	allowedContentTypes = map[string]bool{
		"application/pdf": true,
		"image/tiff":      true,
		"image/png":       true,
		"image/jpeg":      true,
	}
	allowedExtensions = map[string]bool{
		".pdf":  true,
		".tiff": true,
		".tif":  true,
		".png":  true,
		".jpeg": true,
		".jpg":  true,
	}
)

// RAGHandler handles document QA HTTP requests.
type RAGHandler struct {
	service biz.Service
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(service biz.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Upload accepts a multipart batch of documents, stores each in object
// storage and returns a presigned download URL per file.
func (h *RAGHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "invalid multipart form: " + err.Error()})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "no files provided"})
		return
	}

	seen := make(map[string]bool, len(headers))
	for _, fh := range headers {
		if seen[fh.Filename] {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "duplicate filename in batch: " + fh.Filename})
			return
		}
		seen[fh.Filename] = true

		// The separator is reserved for the <file_id>___<file_name> object key.
		if strings.Contains(fh.Filename, model.SepStr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    400,
				Message: "invalid filename " + fh.Filename + ": must not contain " + model.SepStr,
			})
			return
		}

		if !validUploadType(fh) {
			c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
				Code:    415,
				Message: "unsupported file type: " + fh.Filename + " (pdf, tiff, png, jpeg only)",
			})
			return
		}
	}

	files := make([]biz.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "failed to read upload: " + err.Error()})
			return
		}
		opened = append(opened, f)
		files = append(files, biz.UploadFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}

	results, err := h.service.Upload(c.Request.Context(), files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: results})
}

// validUploadType reports whether both the declared content type and the
// filename extension are accepted.
func validUploadType(fh *multipart.FileHeader) bool {
	contentType := fh.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	return allowedContentTypes[contentType] && allowedExtensions[ext]
}

// IngestRequest represents an ingestion request.
type IngestRequest struct {
	SignedURL string `json:"signed_url" binding:"required"`
}

// IngestResponse acknowledges an accepted ingestion job.
type IngestResponse struct {
	FileID string `json:"file_id"`
	Status string `json:"status"`
}

// Ingest submits a background ingestion job for a previously uploaded
// document identified by its signed URL.
func (h *RAGHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	// File identity must be recoverable from the URL before a job is accepted.
	if _, err := model.ParseFileInfoFromURL(req.SignedURL); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	fileID, err := h.service.Ingest(c.Request.Context(), req.SignedURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{
		Code:    0,
		Message: "accepted",
		Data:    IngestResponse{FileID: fileID, Status: "processing"},
	})
}

// ProgressResponse reports ingestion progress for one file.
type ProgressResponse struct {
	FileID   string  `json:"file_id"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
}

// Progress returns the ingestion progress for a file.
func (h *RAGHandler) Progress(c *gin.Context) {
	fileID := c.Param("file_id")

	progress, ok := h.service.Progress(fileID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: "no ingestion found for file_id " + fileID})
		return
	}

	status := "processing"
	switch {
	case progress == biz.ProgressFailed:
		status = "failed"
	case progress >= 1.0:
		status = "completed"
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "success",
		Data:    ProgressResponse{FileID: fileID, Progress: progress, Status: status},
	})
}

// QueryRequest represents a query against one ingested file.
type QueryRequest struct {
	Query  string `json:"query" binding:"required,min=3"`
	FileID string `json:"file_id" binding:"required,min=10"`
	API    string `json:"api"`
}

// Query answers a question scoped to a single ingested file.
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	// 添加 60 秒超时控制
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Answer(ctx, req.Query, req.FileID, req.API)
	if err != nil {
		switch {
		case errors.Is(err, biz.ErrUnknownAPI):
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		case errors.Is(err, store.ErrCollectionNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: err.Error()})
		case ctx.Err() == context.DeadlineExceeded:
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Remove deletes an ingested file's vector collection and progress record.
func (h *RAGHandler) Remove(c *gin.Context) {
	fileID := c.Param("file_id")

	if err := h.service.Remove(c.Request.Context(), fileID); err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Code: 404, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success"})
}

// Stats returns service statistics.
func (h *RAGHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}
