package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"neuroscan/internal/domain/upload"
	"neuroscan/internal/services"
	"neuroscan/internal/transport/httpdto"
	neuroscan_errors "neuroscan/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	service *services.UploadService
}

func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Create handles POST /api/upload: a multipart batch of 1..10 files plus an
// optional patientInfo JSON field shared by every file of the batch.
func (h *UploadHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("No files uploaded"))
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewValidationErrorResponse(
			"No files uploaded", neuroscan_errors.RuleEmptyBatch, 0))
		return
	}

	patientInfo, err := parsePatientInfo(c.PostForm("patientInfo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Invalid patient info"))
		return
	}

	files := make([]services.IngestFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		files = append(files, ingestFile(fh))
	}

	result, err := h.service.Ingest(c.Request.Context(), files, patientInfo)
	if err != nil {
		if ve, ok := neuroscan_errors.AsValidationError(err); ok {
			c.JSON(http.StatusBadRequest, httpdto.NewValidationErrorResponse(ve.Error(), ve.Rule, ve.Count))
			return
		}
		if errors.Is(err, neuroscan_errors.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Invalid patient info"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Upload failed"))
		return
	}

	c.JSON(http.StatusOK, httpdto.UploadBatchResponse{
		Uploads:  result.Uploads,
		Failures: result.Failures,
		Message:  result.Message,
	})
}

// GetByID handles GET /api/upload/:id.
func (h *UploadHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("Upload not found"))
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, neuroscan_errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("Upload not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Failed to fetch upload"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List handles GET /api/uploads.
func (h *UploadHandler) List(c *gin.Context) {
	records, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Failed to fetch uploads"))
		return
	}
	c.JSON(http.StatusOK, records)
}

// UpdateStatus handles PUT /api/upload/:id/status, the hook an external
// analysis engine uses to report genuine results.
func (h *UploadHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("Upload not found"))
		return
	}

	var req httpdto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request body"))
		return
	}

	rec, err := h.service.UpdateStatus(c.Request.Context(), id, upload.Status(req.Status), req.Results)
	if err != nil {
		switch {
		case errors.Is(err, neuroscan_errors.ErrNotFound):
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("Upload not found"))
		case errors.Is(err, neuroscan_errors.ErrInvalidTransition),
			errors.Is(err, neuroscan_errors.ErrResultsMismatch),
			errors.Is(err, neuroscan_errors.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Failed to update upload status"))
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Stats handles GET /api/stats.
func (h *UploadHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Failed to fetch statistics"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parsePatientInfo(raw string) (*upload.PatientInfo, error) {
	if raw == "" {
		return nil, nil
	}
	var info upload.PatientInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, err
	}
	if !info.Validate() {
		return nil, neuroscan_errors.ErrInvalidInput
	}
	return &info, nil
}

func ingestFile(fh *multipart.FileHeader) services.IngestFile {
	return services.IngestFile{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
