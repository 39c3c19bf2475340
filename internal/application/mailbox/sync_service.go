package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/mailbox"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// syncLockTTL bounds how long a crashed run can keep other instances out
const syncLockTTL = 15 * time.Minute

// SyncSummary reports what one poll run did
type SyncSummary struct {
	ConnectorID uuid.UUID      `json:"connector_id"`
	Messages    int            `json:"messages"`
	Ingested    int            `json:"ingested"`
	Duplicates  int            `json:"duplicates"`
	Skipped     int            `json:"skipped"`
	Errors      []MessageError `json:"errors,omitempty"`
	Cursor      string         `json:"cursor"`
}

// MessageError records a single message that could not be processed
type MessageError struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// SyncService runs mailbox polls. One run per connector at a time across all
// instances; inside a run each message fails independently and the cursor
// moves past failures so one broken mail cannot wedge the connector.
type SyncService struct {
	connectorRepo mailbox.ConnectorRepository
	docRepo       document.DocumentRepository
	ingestion     *appdocument.IngestionService
	dialer        MailboxDialer
	vault         Vault
	locker        Locker
	scheduler     SyncScheduler
	audit         appdocument.AuditSink
	logger        *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	connectorRepo mailbox.ConnectorRepository,
	docRepo document.DocumentRepository,
	ingestion *appdocument.IngestionService,
	dialer MailboxDialer,
	vault Vault,
	locker Locker,
	scheduler SyncScheduler,
	audit appdocument.AuditSink,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		connectorRepo: connectorRepo,
		docRepo:       docRepo,
		ingestion:     ingestion,
		dialer:        dialer,
		vault:         vault,
		locker:        locker,
		scheduler:     scheduler,
		audit:         audit,
		logger:        logger,
	}
}

// RunSync executes one poll of a connector's mailbox
func (s *SyncService) RunSync(ctx context.Context, connectorID uuid.UUID) (*SyncSummary, error) {
	lockKey := "mailbox:sync:" + connectorID.String()
	acquired, err := s.locker.Acquire(ctx, lockKey, syncLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, shared.ErrConcurrencyConflict
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("release sync lock failed", zap.Error(err))
		}
	}()

	conn, err := s.connectorRepo.FindByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if err := conn.BeginRun(); err != nil {
		return nil, err
	}
	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		return nil, err
	}

	summary, runErr := s.poll(ctx, conn)
	if runErr != nil {
		s.failRun(ctx, conn, runErr)
		return nil, runErr
	}

	conn.CompleteRun(summary.Cursor)
	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		return nil, fmt.Errorf("persist sync result: %w", err)
	}

	s.logger.Info("mailbox sync completed",
		zap.String("connector_id", connectorID.String()),
		zap.Int("messages", summary.Messages),
		zap.Int("ingested", summary.Ingested),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// poll connects, fetches everything past the cursor and processes each
// message in isolation. Only connection-level failures bubble up as a
// whole-run error.
func (s *SyncService) poll(ctx context.Context, conn *mailbox.Connector) (*SyncSummary, error) {
	password, err := s.vault.Decrypt(conn.EncryptedPassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt mailbox password: %w", err)
	}

	session, err := s.dialer.Dial(ctx, conn.Host, conn.Port, conn.Username, password)
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", conn.Host, conn.Port, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("mailbox session close failed", zap.Error(err))
		}
	}()

	messages, err := session.FetchSince(ctx, conn.Folder, conn.Cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch folder %s: %w", conn.Folder, err)
	}

	summary := &SyncSummary{ConnectorID: conn.ID, Messages: len(messages), Cursor: conn.Cursor}
	for i := range messages {
		msg := &messages[i]
		if err := s.processMessage(ctx, conn, msg, summary); err != nil {
			summary.Errors = append(summary.Errors, MessageError{MessageID: msg.MessageID, Error: err.Error()})
			s.logger.Warn("message processing failed",
				zap.String("connector_id", conn.ID.String()),
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		// The cursor advances even past a failed message; a poisoned mail
		// is reported once, not refetched forever.
		if msg.Cursor != "" {
			summary.Cursor = msg.Cursor
		}
	}
	return summary, nil
}

func (s *SyncService) processMessage(ctx context.Context, conn *mailbox.Connector, msg *InboundMessage, summary *SyncSummary) error {
	var firstErr error
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if !conn.AllowsMimeType(att.MimeType) {
			summary.Skipped++
			continue
		}

		// A mail redelivered across runs must not become a second document.
		existing, err := s.docRepo.FindByEmailKey(ctx, conn.TenantID, msg.MessageID, att.Filename)
		switch {
		case err == nil && existing != nil:
			summary.Duplicates++
			continue
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		_, err = s.ingestion.Ingest(ctx, appdocument.IngestRequest{
			TenantID:  conn.TenantID,
			Bytes:     att.Data,
			MimeType:  att.MimeType,
			Direction: document.DirectionIncoming,
			Channel:   document.ChannelEmail,
			Meta: document.ChannelMetadata{
				Filename:       att.Filename,
				EmailSender:    msg.Sender,
				EmailSubject:   msg.Subject,
				EmailMessageID: msg.MessageID,
			},
		})
		switch {
		case err == nil:
			summary.Ingested++
		case errors.Is(err, shared.ErrDuplicateContent):
			// Same bytes arrived through another channel or an earlier mail.
			summary.Duplicates++
		default:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// failRun records a whole-run failure and tears the schedule down when the
// connector crosses its failure threshold.
func (s *SyncService) failRun(ctx context.Context, conn *mailbox.Connector, runErr error) {
	deactivated := conn.FailRun(runErr.Error())
	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		s.logger.Error("persist failed sync state",
			zap.String("connector_id", conn.ID.String()),
			zap.Error(err),
		)
		return
	}

	if deactivated {
		s.scheduler.Remove(conn.ID)
		s.audit.Append(ctx, appdocument.AuditEntry{
			TenantID:   conn.TenantID,
			EntityType: mailbox.AggregateTypeConnector,
			EntityID:   conn.ID,
			Action:     "connector.deactivated",
			After:      map[string]any{"failures": conn.ConsecutiveFailures, "last_error": conn.LastError},
		})
		s.logger.Error("connector deactivated after repeated failures",
			zap.String("connector_id", conn.ID.String()),
			zap.Int("failures", conn.ConsecutiveFailures),
		)
		return
	}

	s.logger.Warn("mailbox sync failed",
		zap.String("connector_id", conn.ID.String()),
		zap.Int("consecutive_failures", conn.ConsecutiveFailures),
		zap.Error(runErr),
	)
}
