package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

var (
	ErrQueueClosed = errors.New("parse queue is shutting down")
	ErrJobNotFound = errors.New("parse job not found")
)

// Job is one queued parse.
type Job struct {
	ID          uuid.UUID
	Request     entity.ParseRequest
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Submit(ctx context.Context, req entity.ParseRequest) (entity.ParseJob, error)
	Get(ctx context.Context, id uuid.UUID) (entity.ParseJob, error)
	Shutdown(ctx context.Context)
}

// JobStore keeps job status for polling. Entries expire after the store's TTL.
type JobStore interface {
	Save(ctx context.Context, job entity.ParseJob) error
	Get(ctx context.Context, id uuid.UUID) (entity.ParseJob, error)
}
