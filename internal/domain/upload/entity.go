package upload

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an upload record.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// rank orders the lifecycle. Terminal states share the highest rank so a
// record can never regress, and terminals can never replace each other.
func (s Status) rank() int {
	switch s {
	case StatusUploaded:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusError:
		return 2
	}
	return -1
}

func (s Status) Valid() bool {
	return s.rank() >= 0
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether moving from s to next is allowed.
// Re-asserting the current status is allowed so terminal updates stay
// idempotent.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return next.rank() > s.rank()
}

// PatientInfo is the optional clinical context attached to every file of a
// batch at ingestion time. It is a snapshot and is never mutated afterwards.
type PatientInfo struct {
	PatientID     string `json:"patientId,omitempty"`
	Age           *int   `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`   // male, female, other
	ScanType      string `json:"scanType,omitempty"` // t1, t2, flair, dwi
	ClinicalNotes string `json:"clinicalNotes,omitempty"`
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true}
var validScanTypes = map[string]bool{"t1": true, "t2": true, "flair": true, "dwi": true}

// Validate checks the enum fields. Empty fields are fine, every field is
// individually optional.
func (p *PatientInfo) Validate() bool {
	if p == nil {
		return true
	}
	if p.Gender != "" && !validGenders[p.Gender] {
		return false
	}
	if p.ScanType != "" && !validScanTypes[p.ScanType] {
		return false
	}
	return true
}

// AnalysisResults is present if and only if the record is completed.
type AnalysisResults struct {
	ConfidenceScore   float64  `json:"confidenceScore"`
	AnomaliesDetected bool     `json:"anomaliesDetected"`
	Findings          []string `json:"findings"`
	ProcessingTime    int      `json:"processingTime"` // seconds
}

// UploadRecord tracks one ingested file through the analysis lifecycle.
type UploadRecord struct {
	ID           uuid.UUID        `json:"id"`
	Filename     string           `json:"filename"` // server-assigned storage name
	OriginalName string           `json:"originalName"`
	Path         string           `json:"path"`
	FileSize     int64            `json:"fileSize"`
	MimeType     string           `json:"mimeType"`
	Status       Status           `json:"status"`
	UploadedAt   time.Time        `json:"uploadedAt"`
	ProcessedAt  *time.Time       `json:"processedAt"`
	UserID       *uuid.UUID       `json:"userId"`
	PatientInfo  *PatientInfo     `json:"patientInfo"`
	Results      *AnalysisResults `json:"results"`
}
