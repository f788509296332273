package repository

import (
	"context"

	"neuroscan/internal/domain/upload"
	"neuroscan/internal/domain/user"

	"github.com/google/uuid"
)

// UploadRepository stores upload records. UpdateStatus must enforce the
// lifecycle: no regression to an earlier status, processedAt set exactly
// once on first entry into a terminal state, and results present if and
// only if the record is completed.
//
// Conflicting concurrent terminal updates resolve last-write-wins; there is
// no optimistic concurrency check.
type UploadRepository interface {
	Create(ctx context.Context, u *upload.UploadRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (upload.UploadRecord, error)
	ListAll(ctx context.Context) ([]upload.UploadRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status upload.Status, results *upload.AnalysisResults) (upload.UploadRecord, error)
}

// UserRepository stores user accounts with unique usernames.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}
