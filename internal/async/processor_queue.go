package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
)

// Parser runs one pipeline pass.
type Parser interface {
	Parse(ctx context.Context, req entity.ParseRequest) (entity.ParseResult, error)
}

// ProcessorQueue runs parse jobs on a fixed worker pool and records their
// status in a JobStore.
type ProcessorQueue struct {
	parser  Parser
	store   JobStore
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(status constants.JobStatus)
	onDepth func(depth int)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// quit is closed by Shutdown to release blocked submitters; ch is closed
	// only after every in-flight Submit has returned.
	quit    chan struct{}
	sending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithCompletionHook is called once per finished job.
func WithCompletionHook(fn func(status constants.JobStatus)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

// WithDepthHook is told the queue length after every enqueue and dequeue.
func WithDepthHook(fn func(depth int)) Option {
	return func(q *ProcessorQueue) { q.onDepth = fn }
}

func NewProcessorQueue(parser Parser, store JobStore, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		parser:  parser,
		store:   store,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.depth()
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	rec := entity.ParseJob{
		ID:          job.ID,
		Status:      constants.JobStatusRunning,
		Request:     job.Request,
		SubmittedAt: job.SubmittedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := q.store.Save(ctx, rec); err != nil {
		q.logger.Warn("job.status.save_failed", "job_id", job.ID, "error", err)
	}

	res, err := q.parser.Parse(ctx, job.Request)
	rec.Result = &res
	rec.UpdatedAt = time.Now().UTC()
	if err != nil {
		rec.Status = constants.JobStatusFailed
		rec.ErrorKind = string(common.KindOf(err))
		rec.Error = common.UserMessage(err)
		var se *pipeline.StageError
		if errors.As(err, &se) {
			rec.Stage = string(se.Stage)
		}
		q.logger.Error("job.failed", "worker_id", workerID, "job_id", job.ID, "kind", rec.ErrorKind, "error", err)
	} else {
		rec.Status = constants.JobStatusSucceeded
		q.logger.Info("job.succeeded", "worker_id", workerID, "job_id", job.ID, "title", res.Event.Title)
	}

	// the job context may be spent; status must still land
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer saveCancel()
	if err := q.store.Save(saveCtx, rec); err != nil {
		q.logger.Error("job.status.save_failed", "job_id", job.ID, "error", err)
	}
	if q.onDone != nil {
		q.onDone(rec.Status)
	}
}

// Submit records the job as queued and hands it to a worker. A full queue
// applies backpressure until ctx is done.
func (q *ProcessorQueue) Submit(ctx context.Context, req entity.ParseRequest) (entity.ParseJob, error) {
	now := time.Now().UTC()
	job := Job{ID: uuid.New(), Request: req, SubmittedAt: now, RequestID: common.RequestIDFromContext(ctx)}
	rec := entity.ParseJob{
		ID:          job.ID,
		Status:      constants.JobStatusQueued,
		Request:     req,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return entity.ParseJob{}, ErrQueueClosed
	}
	q.sending.Add(1)
	q.mu.Unlock()
	defer q.sending.Done()

	if err := q.store.Save(ctx, rec); err != nil {
		return entity.ParseJob{}, err
	}
	abandon := func(reason string) {
		rec.Status = constants.JobStatusFailed
		rec.Error = reason
		rec.UpdatedAt = time.Now().UTC()
		_ = q.store.Save(context.WithoutCancel(ctx), rec)
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			abandon("queue full")
			return entity.ParseJob{}, ctx.Err()
		case <-q.quit:
			abandon("queue shut down")
			return entity.ParseJob{}, ErrQueueClosed
		}
	}
	q.depth()
	q.logger.Info("job.queued", "job_id", job.ID, "type", req.Type)
	return rec, nil
}

func (q *ProcessorQueue) Get(ctx context.Context, id uuid.UUID) (entity.ParseJob, error) {
	return q.store.Get(ctx, id)
}

func (q *ProcessorQueue) depth() {
	if q.onDepth != nil {
		q.onDepth(len(q.ch))
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.sending.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
