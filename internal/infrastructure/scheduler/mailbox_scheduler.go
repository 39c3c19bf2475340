package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SyncExecutor runs one mailbox poll for a connector
type SyncExecutor func(ctx context.Context, connectorID uuid.UUID) error

// MailboxScheduler drives per-connector polling. Every scheduled connector
// gets its own ticker goroutine; rescheduling replaces the old one. The
// executor owns all error handling, the scheduler only distinguishes benign
// skips from real failures for logging.
type MailboxScheduler struct {
	executor SyncExecutor
	logger   *zap.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
	root    context.Context
	stop    context.CancelFunc
}

// NewMailboxScheduler creates a stopped scheduler; call Start before Schedule
func NewMailboxScheduler(executor SyncExecutor, logger *zap.Logger) *MailboxScheduler {
	return &MailboxScheduler{
		executor: executor,
		logger:   logger,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start binds the scheduler to a root context
func (s *MailboxScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root != nil {
		return
	}
	s.root, s.stop = context.WithCancel(ctx)
	s.logger.Info("mailbox scheduler started")
}

// Schedule registers (or replaces) the polling job for a connector
func (s *MailboxScheduler) Schedule(connectorID uuid.UUID, interval time.Duration) {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		s.logger.Error("schedule called before start", zap.String("connector_id", connectorID.String()))
		return
	}
	if cancel, ok := s.cancels[connectorID]; ok {
		cancel()
	}

	ctx, cancel := context.WithCancel(s.root)
	s.cancels[connectorID] = cancel

	s.wg.Add(1)
	go s.run(ctx, connectorID, interval)

	s.logger.Info("connector polling scheduled",
		zap.String("connector_id", connectorID.String()),
		zap.Duration("interval", interval),
	)
}

// Remove cancels the polling job of a connector
func (s *MailboxScheduler) Remove(connectorID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[connectorID]; ok {
		cancel()
		delete(s.cancels, connectorID)
		s.logger.Info("connector polling removed", zap.String("connector_id", connectorID.String()))
	}
}

// TriggerNow runs one poll immediately, outside the timer cadence
func (s *MailboxScheduler) TriggerNow(ctx context.Context, connectorID uuid.UUID) error {
	return s.executor(ctx, connectorID)
}

// Stop cancels all jobs and waits for in-flight polls
func (s *MailboxScheduler) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.cancels = make(map[uuid.UUID]context.CancelFunc)
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("mailbox scheduler stopped")
}

func (s *MailboxScheduler) run(ctx context.Context, connectorID uuid.UUID, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, connectorID)
		}
	}
}

func (s *MailboxScheduler) execute(ctx context.Context, connectorID uuid.UUID) {
	err := s.executor(ctx, connectorID)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrConcurrencyConflict):
		// Another instance holds the sync lock; its run counts for this tick.
		s.logger.Debug("poll skipped, already running elsewhere",
			zap.String("connector_id", connectorID.String()),
		)
	case errors.Is(err, shared.ErrConnectorInactive):
		s.logger.Debug("poll skipped, connector inactive",
			zap.String("connector_id", connectorID.String()),
		)
	default:
		// Run-level failure accounting happens in the sync service.
		s.logger.Warn("scheduled poll failed",
			zap.String("connector_id", connectorID.String()),
			zap.Error(err),
		)
	}
}
