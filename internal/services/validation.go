package services

import (
	"io"
	"path/filepath"
	"strings"

	neuroscan_errors "neuroscan/pkg/errors"
)

// File acceptance policy. A file passes the type check when either its
// declared MIME type or its extension is allowed.
const (
	MaxFileSize   = 50 * 1024 * 1024
	MaxBatchFiles = 10
)

var allowedMimeTypes = map[string]bool{
	"application/dicom": true,
	"image/jpeg":        true,
	"image/png":         true,
	"image/jpg":         true,
}

var allowedExtensions = map[string]bool{
	".dcm":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IngestFile is one candidate file of an upload batch. Open is deferred so
// validation never touches file contents.
type IngestFile struct {
	OriginalName string
	MimeType     string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

func fileTypeAllowed(f IngestFile) bool {
	if allowedMimeTypes[f.MimeType] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(f.OriginalName))
	return allowedExtensions[ext]
}

// ValidateBatch accepts or rejects a whole batch before any persistence.
// Any offending file rejects every file; there is no partial acceptance.
func ValidateBatch(files []IngestFile) error {
	if len(files) == 0 {
		return neuroscan_errors.NewValidationError(
			neuroscan_errors.RuleEmptyBatch, 0, "No files uploaded")
	}

	badType := 0
	for _, f := range files {
		if !fileTypeAllowed(f) {
			badType++
		}
	}
	if badType > 0 {
		return neuroscan_errors.NewValidationError(
			neuroscan_errors.RuleInvalidFileType, badType,
			"Invalid file type. Only DICOM, JPEG, and PNG files are allowed.")
	}

	tooLarge := 0
	for _, f := range files {
		if f.Size > MaxFileSize {
			tooLarge++
		}
	}
	if tooLarge > 0 {
		return neuroscan_errors.NewValidationError(
			neuroscan_errors.RuleFileTooLarge, tooLarge,
			"File too large. Maximum size is 50MB.")
	}

	return nil
}
