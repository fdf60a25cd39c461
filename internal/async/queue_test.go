package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
	"github.com/joseph-ayodele/campus-feed/internal/pipeline"
)

type stubParser struct {
	block chan struct{}
	fail  error
}

func (p *stubParser) Parse(ctx context.Context, req entity.ParseRequest) (entity.ParseResult, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return entity.ParseResult{}, ctx.Err()
		}
	}
	res := entity.ParseResult{Logs: []string{"🚀 开始解析..."}}
	if p.fail != nil {
		return res, p.fail
	}
	res.Event = entity.ParsedEvent{Title: "title of " + req.Content, Type: constants.EventTypeActivity}
	return res, nil
}

func waitTerminal(t *testing.T, q *ProcessorQueue, id uuid.UUID) entity.ParseJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return entity.ParseJob{}
}

func TestSubmitSucceeds(t *testing.T) {
	var (
		mu       sync.Mutex
		statuses []constants.JobStatus
	)
	q := NewProcessorQueue(&stubParser{}, NewMemoryStore(time.Hour), nil,
		WithWorkers(2),
		WithCompletionHook(func(s constants.JobStatus) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		}))
	defer q.Shutdown(context.Background())

	job, err := q.Submit(context.Background(), entity.ParseRequest{Type: constants.InputText, Content: "x"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != constants.JobStatusQueued {
		t.Errorf("initial status = %s", job.Status)
	}
	done := waitTerminal(t, q, job.ID)
	if done.Status != constants.JobStatusSucceeded {
		t.Fatalf("status = %s", done.Status)
	}
	if done.Result == nil || done.Result.Event.Title != "title of x" {
		t.Errorf("result = %+v", done.Result)
	}

	q.Shutdown(context.Background())
	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 1 || statuses[0] != constants.JobStatusSucceeded {
		t.Errorf("hook statuses = %v", statuses)
	}
}

func TestSubmitFailureRecordsKindAndStage(t *testing.T) {
	perr := common.NewPipelineError(common.KindModelError, "model call failed", errors.New("boom"))
	fail := &pipeline.StageError{Stage: pipeline.StageModel, Err: perr}
	q := NewProcessorQueue(&stubParser{fail: fail}, NewMemoryStore(time.Hour), nil, WithWorkers(1))
	defer q.Shutdown(context.Background())

	job, err := q.Submit(context.Background(), entity.ParseRequest{Type: constants.InputText, Content: "x"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, q, job.ID)
	if done.Status != constants.JobStatusFailed {
		t.Fatalf("status = %s", done.Status)
	}
	if done.ErrorKind != string(common.KindModelError) || done.Stage != "model" {
		t.Errorf("kind=%q stage=%q", done.ErrorKind, done.Stage)
	}
	if done.Result == nil || len(done.Result.Logs) != 1 {
		t.Errorf("logs not kept: %+v", done.Result)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&stubParser{}, NewMemoryStore(time.Hour), nil)
	q.Shutdown(context.Background())
	if _, err := q.Submit(context.Background(), entity.ParseRequest{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
}

func TestBackpressureHonoursContext(t *testing.T) {
	block := make(chan struct{})
	q := NewProcessorQueue(&stubParser{block: block}, NewMemoryStore(time.Hour), nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(block)
		q.Shutdown(context.Background())
	}()

	// the second submit only returns once the worker holds the first job,
	// so afterwards one job runs and one fills the buffer
	for i := 0; i < 2; i++ {
		if _, err := q.Submit(context.Background(), entity.ParseRequest{Content: "x"}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Submit(ctx, entity.ParseRequest{Content: "x"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestBlockedSubmitDoesNotStallOthers(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	store := NewMemoryStore(time.Hour)
	q := NewProcessorQueue(&stubParser{block: block}, store, nil, WithWorkers(1), WithQueueSize(1))

	for i := 0; i < 2; i++ {
		if _, err := q.Submit(context.Background(), entity.ParseRequest{Content: "x"}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	// parked in backpressure with no deadline of its own
	parked := make(chan error, 1)
	go func() {
		_, err := q.Submit(context.Background(), entity.ParseRequest{Content: "parked"})
		parked <- err
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := q.Submit(ctx, entity.ParseRequest{Content: "y"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("second submitter waited %s behind the parked one", elapsed)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shutdownCancel()
	q.Shutdown(shutdownCtx)
	select {
	case err := <-parked:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("parked submit err = %v, want ErrQueueClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("parked submit not released by Shutdown")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }
	id := uuid.New()
	if err := s.Save(context.Background(), entity.ParseJob{ID: id, Status: constants.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), id); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(context.Background(), id); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestNewJobStore(t *testing.T) {
	store, closer, err := NewJobStore(context.Background(), common.JobsConfig{ResultTTL: time.Hour}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("store = %T, want *MemoryStore", store)
	}
	if err := closer(); err != nil {
		t.Error(err)
	}
	if _, _, err := NewJobStore(context.Background(), common.JobsConfig{RedisURL: "not a url"}, nil); err == nil {
		t.Error("expected error for bad redis url")
	}
}
