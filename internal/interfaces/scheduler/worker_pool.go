package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer          = otel.Tracer("zzpboek/scheduler")
	jobMeter           = otel.Meter("zzpboek/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

// ErrQueueFull is returned by Submit when the job queue has no room. The
// dropped job is picked up again on the next scheduled run.
var ErrQueueFull = errors.New("job queue full")

const jobTimeout = 2 * time.Minute

// WorkerPool runs sync jobs on a fixed set of goroutines. jobDelay spaces
// consecutive jobs per worker to stay under the provider's rate limits.
type WorkerPool struct {
	jobDelay time.Duration
	workers  int
	jobs     chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorkerPool(workers int, jobDelay time.Duration, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobDelay: jobDelay,
		workers:  workers,
		jobs:     make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	log.Printf("Starting %d sync workers", wp.workers)
	for i := 1; i <= wp.workers; i++ {
		wp.wg.Add(1)
		go wp.run(i)
	}
}

func (wp *WorkerPool) run(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.execute(id, job)
			if !wp.pause() {
				return
			}
		}
	}
}

// pause sleeps for the configured inter-job delay. Returns false when the
// pool was cancelled during the sleep.
func (wp *WorkerPool) pause() bool {
	if wp.jobDelay <= 0 {
		return true
	}
	select {
	case <-time.After(wp.jobDelay):
		return true
	case <-wp.ctx.Done():
		return false
	}
}

func (wp *WorkerPool) execute(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(wp.ctx, jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.String("job.connection_id", job.ConnectionID()),
		),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	jobDuration.Record(ctx, elapsed.Seconds())
	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))

	if err != nil {
		log.Printf("Worker %d: %s failed after %s: %v", workerID, job.Description(), elapsed.Round(time.Millisecond), err)
		return
	}
	log.Printf("Worker %d: %s done in %s", workerID, job.Description(), elapsed.Round(time.Millisecond))
}

// Submit queues a job without blocking. A full queue returns ErrQueueFull
// so the scheduling loop is never held up by slow workers.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		return ErrQueueFull
	}
}

// SubmitBatch queues jobs and logs any that were dropped.
func (wp *WorkerPool) SubmitBatch(jobs []Job) {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			log.Printf("Dropping sync job for connection %s: %v", job.ConnectionID(), err)
			continue
		}
		submitted++
	}
	log.Printf("Queued %d/%d sync jobs", submitted, len(jobs))
}

// ShutdownWithTimeout closes the queue and waits for in-flight jobs up to
// the timeout, then cancels whatever is still running.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	close(wp.jobs)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("Worker pool: %v shutdown timeout reached, cancelling running jobs", timeout)
	}
	wp.cancel()
}
