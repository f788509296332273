package events

import (
	"context"
	"time"

	"neuroscan/internal/domain/upload"

	"github.com/google/uuid"
)

// StatusEvent announces a lifecycle transition of one upload record. An
// external analysis engine or dashboard subscribes to these instead of
// polling the HTTP API.
type StatusEvent struct {
	UploadID  uuid.UUID     `json:"uploadId"`
	Previous  upload.Status `json:"previous,omitempty"`
	Status    upload.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event StatusEvent) error
}

// Fanout publishes to every sink, ignoring nil entries. Errors from one sink
// do not stop the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event StatusEvent) error {
	var last error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			last = err
		}
	}
	return last
}
