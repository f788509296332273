package memory

import (
	"context"
	"sync"
	"time"

	"neuroscan/internal/domain/upload"
	"neuroscan/internal/repository"
	neuroscan_errors "neuroscan/pkg/errors"

	"github.com/google/uuid"
)

// MemoryUploadRepository keeps upload records in process memory. Records are
// lost on restart; the repository.UploadRepository interface is the seam for
// a durable backend.
//
// Mutations are serialized by a single RWMutex. Two callers racing to set a
// terminal status resolve last-write-wins.
type MemoryUploadRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*upload.UploadRecord
	order   []uuid.UUID
}

func NewUploadRepository() *MemoryUploadRepository {
	return &MemoryUploadRepository{
		records: make(map[uuid.UUID]*upload.UploadRecord),
	}
}

var _ repository.UploadRepository = (*MemoryUploadRepository)(nil)

func (r *MemoryUploadRepository) Create(ctx context.Context, u *upload.UploadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, exists := r.records[u.ID]; exists {
		return neuroscan_errors.ErrAlreadyExists
	}
	if u.Status == "" {
		u.Status = upload.StatusUploaded
	}
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}

	stored := *u
	r.records[u.ID] = &stored
	r.order = append(r.order, u.ID)
	return nil
}

func (r *MemoryUploadRepository) GetByID(ctx context.Context, id uuid.UUID) (upload.UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return upload.UploadRecord{}, neuroscan_errors.ErrNotFound
	}
	return *rec, nil
}

// ListAll returns every record in insertion order. Consumers that want an
// activity view sort descending by uploadedAt themselves.
func (r *MemoryUploadRepository) ListAll(ctx context.Context) ([]upload.UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]upload.UploadRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out, nil
}

func (r *MemoryUploadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status upload.Status, results *upload.AnalysisResults) (upload.UploadRecord, error) {
	if !status.Valid() {
		return upload.UploadRecord{}, neuroscan_errors.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return upload.UploadRecord{}, neuroscan_errors.ErrNotFound
	}
	if !rec.Status.CanTransition(status) {
		return upload.UploadRecord{}, neuroscan_errors.ErrInvalidTransition
	}
	if results != nil && status != upload.StatusCompleted {
		return upload.UploadRecord{}, neuroscan_errors.ErrResultsMismatch
	}
	if status == upload.StatusCompleted && results == nil && rec.Results == nil {
		return upload.UploadRecord{}, neuroscan_errors.ErrResultsMismatch
	}

	rec.Status = status
	if results != nil {
		rec.Results = results
	}
	if status.Terminal() && rec.ProcessedAt == nil {
		rec.ProcessedAt = neuroscan_errors.NowPtr()
	}
	return *rec, nil
}
