package httpdto

import (
	"neuroscan/internal/domain/upload"
	"neuroscan/internal/services"
)

// UploadBatchResponse is returned by POST /api/upload. Failures lists files
// whose bytes could not be persisted after the batch passed validation.
type UploadBatchResponse struct {
	Uploads  []upload.UploadRecord    `json:"uploads"`
	Failures []services.IngestFailure `json:"failures,omitempty"`
	Message  string                   `json:"message"`
}

// UpdateStatusRequest is the body of PUT /api/upload/:id/status. It lets an
// external analysis engine report genuine results.
type UpdateStatusRequest struct {
	Status  string                  `json:"status" binding:"required"`
	Results *upload.AnalysisResults `json:"results,omitempty"`
}
