package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventModel is the persisted form of one audit event
type EventModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_tenant_time,priority:1"`
	ActorID    *uuid.UUID `gorm:"type:uuid"`
	EntityType string     `gorm:"type:varchar(50);not null"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Action     string     `gorm:"type:varchar(100);not null"`
	Before     any        `gorm:"type:jsonb;serializer:json"`
	After      any        `gorm:"type:jsonb;serializer:json"`
	CreatedAt  time.Time  `gorm:"not null;index:idx_audit_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (EventModel) TableName() string {
	return "audit_events"
}

// Writer persists audit events asynchronously. Writes go through a buffered
// channel so the request path never waits on the audit table; when the
// buffer is full the event is dropped and counted, not blocked on.
type Writer struct {
	db      *gorm.DB
	events  chan EventModel
	dropped int64
	mu      sync.Mutex
	wg      sync.WaitGroup
	done    chan struct{}
	logger  *zap.Logger
}

// NewWriter creates an audit writer with the given buffer size and starts
// its background flusher
func NewWriter(db *gorm.DB, bufferSize int, logger *zap.Logger) *Writer {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	w := &Writer{
		db:     db,
		events: make(chan EventModel, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Append implements the audit sink. It never blocks and never fails the caller.
func (w *Writer) Append(_ context.Context, entry appdocument.AuditEntry) {
	event := EventModel{
		ID:         uuid.New(),
		TenantID:   entry.TenantID,
		ActorID:    entry.ActorID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Before:     entry.Before,
		After:      entry.After,
		CreatedAt:  time.Now(),
	}
	select {
	case w.events <- event:
	default:
		w.mu.Lock()
		w.dropped++
		dropped := w.dropped
		w.mu.Unlock()
		w.logger.Warn("audit buffer full, event dropped",
			zap.String("action", entry.Action),
			zap.Int64("dropped_total", dropped),
		)
	}
}

// Dropped returns how many events were lost to a full buffer
func (w *Writer) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close flushes buffered events and stops the writer
func (w *Writer) Close() {
	close(w.done)
	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.events:
			w.write(event)
		case <-w.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-w.events:
					w.write(event)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(event EventModel) {
	if err := w.db.Create(&event).Error; err != nil {
		w.logger.Error("audit event write failed",
			zap.String("action", event.Action),
			zap.Error(err),
		)
	}
}
