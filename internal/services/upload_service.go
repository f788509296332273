package services

import (
	"context"
	"fmt"
	"time"

	"neuroscan/internal/domain/upload"
	"neuroscan/internal/events"
	"neuroscan/internal/repository"
	"neuroscan/internal/storage"
	neuroscan_errors "neuroscan/pkg/errors"
	"neuroscan/pkg/logger"

	"github.com/google/uuid"
)

// AnalysisScheduler hands a freshly created record to the analysis driver.
// Enqueue must not block the ingestion response.
type AnalysisScheduler interface {
	Enqueue(id uuid.UUID) error
}

// IngestFailure reports one file whose bytes could not be persisted after
// the batch already passed validation. Siblings are not rolled back.
type IngestFailure struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// IngestResult is the outcome of one upload batch.
type IngestResult struct {
	Uploads  []upload.UploadRecord
	Failures []IngestFailure
	Message  string
}

// UploadStats are counts by status, recomputed from the store on each call.
type UploadStats struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Error      int `json:"error"`
}

type UploadService struct {
	repo      repository.UploadRepository
	store     storage.BlobStore
	scheduler AnalysisScheduler
	publisher events.Publisher
	logger    *logger.Logger
}

func NewUploadService(repo repository.UploadRepository, store storage.BlobStore, scheduler AnalysisScheduler, publisher events.Publisher, l *logger.Logger) *UploadService {
	return &UploadService{
		repo:      repo,
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		logger:    l,
	}
}

// Ingest validates a batch, persists each file and creates one record per
// file in uploaded status, then schedules the analysis lifecycle. The whole
// batch is rejected before any side effect when validation fails; failures
// after validation are per-file and explicit in the result.
func (s *UploadService) Ingest(ctx context.Context, files []IngestFile, patientInfo *upload.PatientInfo) (IngestResult, error) {
	if len(files) == 0 {
		return IngestResult{}, neuroscan_errors.NewValidationError(
			neuroscan_errors.RuleEmptyBatch, 0, "No files uploaded")
	}
	if len(files) > MaxBatchFiles {
		return IngestResult{}, neuroscan_errors.NewValidationError(
			neuroscan_errors.RuleBatchTooLarge, len(files)-MaxBatchFiles,
			fmt.Sprintf("Too many files. Maximum is %d per upload.", MaxBatchFiles))
	}
	if err := ValidateBatch(files); err != nil {
		return IngestResult{}, err
	}
	if !patientInfo.Validate() {
		return IngestResult{}, neuroscan_errors.ErrInvalidInput
	}

	result := IngestResult{Uploads: make([]upload.UploadRecord, 0, len(files))}

	for _, f := range files {
		rec, err := s.ingestOne(ctx, f, patientInfo)
		if err != nil {
			if s.logger != nil {
				s.logger.Errorf("failed to persist %s: %s", f.OriginalName, err)
			}
			result.Failures = append(result.Failures, IngestFailure{
				OriginalName: f.OriginalName,
				Error:        err.Error(),
			})
			continue
		}
		result.Uploads = append(result.Uploads, rec)
	}

	if len(result.Uploads) == 0 && len(result.Failures) > 0 {
		return result, fmt.Errorf("all %d file(s) failed to persist", len(result.Failures))
	}

	result.Message = fmt.Sprintf("%d file(s) uploaded successfully", len(result.Uploads))
	return result, nil
}

func (s *UploadService) ingestOne(ctx context.Context, f IngestFile, patientInfo *upload.PatientInfo) (upload.UploadRecord, error) {
	body, err := f.Open()
	if err != nil {
		return upload.UploadRecord{}, fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()

	obj, err := s.store.Save(ctx, body, f.OriginalName, f.MimeType)
	if err != nil {
		return upload.UploadRecord{}, err
	}

	rec := upload.UploadRecord{
		ID:           uuid.New(),
		Filename:     obj.Name,
		OriginalName: f.OriginalName,
		Path:         obj.Path,
		FileSize:     obj.Size,
		MimeType:     f.MimeType,
		Status:       upload.StatusUploaded,
		UploadedAt:   time.Now(),
		PatientInfo:  patientInfo,
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		return upload.UploadRecord{}, err
	}

	s.publish(ctx, events.StatusEvent{
		UploadID:  rec.ID,
		Status:    upload.StatusUploaded,
		Timestamp: rec.UploadedAt,
	})

	if s.scheduler != nil {
		if err := s.scheduler.Enqueue(rec.ID); err != nil && s.logger != nil {
			// The record stays in uploaded status; the external status
			// update endpoint can still move it forward.
			s.logger.Errorf("failed to schedule analysis for %s: %s", rec.ID, err)
		}
	}
	return rec, nil
}

func (s *UploadService) GetByID(ctx context.Context, id uuid.UUID) (upload.UploadRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UploadService) ListAll(ctx context.Context) ([]upload.UploadRecord, error) {
	return s.repo.ListAll(ctx)
}

// UpdateStatus is the hook an external analysis engine uses to report real
// results in place of the simulated ones.
func (s *UploadService) UpdateStatus(ctx context.Context, id uuid.UUID, status upload.Status, results *upload.AnalysisResults) (upload.UploadRecord, error) {
	if !status.Valid() {
		return upload.UploadRecord{}, neuroscan_errors.ErrInvalidInput
	}

	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return upload.UploadRecord{}, err
	}

	rec, err := s.repo.UpdateStatus(ctx, id, status, results)
	if err != nil {
		return upload.UploadRecord{}, err
	}

	if prev.Status != rec.Status {
		s.publish(ctx, events.StatusEvent{
			UploadID:  rec.ID,
			Previous:  prev.Status,
			Status:    rec.Status,
			Timestamp: time.Now(),
		})
	}
	return rec, nil
}

// Stats recomputes counts by status from the full record list.
func (s *UploadService) Stats(ctx context.Context) (UploadStats, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return UploadStats{}, err
	}

	stats := UploadStats{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case upload.StatusUploaded:
			stats.Uploaded++
		case upload.StatusProcessing:
			stats.Processing++
		case upload.StatusCompleted:
			stats.Completed++
		case upload.StatusError:
			stats.Error++
		}
	}
	return stats, nil
}

func (s *UploadService) publish(ctx context.Context, event events.StatusEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Warnf("failed to publish status event for %s: %s", event.UploadID, err)
	}
}
