package queue

import (
	"context"
	"sync"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds how often a failing job is redelivered before
// the document stays in ERROR for manual intervention
const DefaultMaxAttempts = 3

// Dequeuer is the consuming side of a job queue
type Dequeuer interface {
	Dequeue(ctx context.Context) (*appdocument.ExtractionJob, error)
	Enqueue(ctx context.Context, job appdocument.ExtractionJob) error
}

// Processor handles one extraction job
type Processor interface {
	Process(ctx context.Context, job appdocument.ExtractionJob) error
}

// WorkerPool consumes extraction jobs with a fixed number of workers.
// A failed job goes back on the queue with an incremented attempt counter
// until the attempt budget is spent.
type WorkerPool struct {
	queue       Dequeuer
	processor   Processor
	workers     int
	maxAttempts int
	logger      *zap.Logger
	wg          sync.WaitGroup
	cancel      context.CancelFunc
}

// NewWorkerPool creates a worker pool
func NewWorkerPool(queue Dequeuer, processor Processor, workers, maxAttempts int, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &WorkerPool{
		queue:       queue,
		processor:   processor,
		workers:     workers,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Start launches the workers
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	p.logger.Info("extraction worker pool started", zap.Int("workers", p.workers))
}

// Stop cancels the workers and waits for in-flight jobs
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("extraction worker pool stopped")
}

func (p *WorkerPool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Int("worker", id), zap.Error(err))
			continue
		}
		if job == nil {
			// Poll timeout.
			continue
		}
		p.handle(ctx, *job)
	}
}

func (p *WorkerPool) handle(ctx context.Context, job appdocument.ExtractionJob) {
	err := p.processor.Process(ctx, job)
	if err == nil {
		return
	}

	if job.Attempt >= p.maxAttempts {
		p.logger.Error("extraction job failed terminally",
			zap.String("document_id", job.DocumentID.String()),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
		return
	}

	retry := job
	retry.Attempt++
	if enqErr := p.queue.Enqueue(ctx, retry); enqErr != nil {
		p.logger.Error("requeue after failure lost the job",
			zap.String("document_id", job.DocumentID.String()),
			zap.Int("attempt", job.Attempt),
			zap.Error(enqErr),
		)
		return
	}
	p.logger.Warn("extraction job requeued",
		zap.String("document_id", job.DocumentID.String()),
		zap.Int("next_attempt", retry.Attempt),
		zap.Error(err),
	)
}
