package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IngestRequest carries one document into the pipeline, regardless of channel
type IngestRequest struct {
	TenantID  uuid.UUID
	ActorID   *uuid.UUID
	Bytes     []byte
	MimeType  string
	Direction document.Direction
	Channel   document.Channel
	Meta      document.ChannelMetadata
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID              uuid.UUID                `json:"id"`
	TenantID        uuid.UUID                `json:"tenant_id"`
	SequenceNo      int64                    `json:"sequence_no"`
	ContentHash     string                   `json:"content_hash"`
	Direction       document.Direction       `json:"direction"`
	Channel         document.Channel         `json:"channel"`
	ChannelMeta     document.ChannelMetadata `json:"channel_meta"`
	Status          document.Status          `json:"status"`
	StatusMessage   string                   `json:"status_message,omitempty"`
	Severity        document.Severity        `json:"severity"`
	LatestVersionNo int                      `json:"latest_version_no"`
	CounterpartID   *uuid.UUID               `json:"counterpart_id,omitempty"`
	ReplacesID      *uuid.UUID               `json:"replaces_id,omitempty"`
	ReplacedByID    *uuid.UUID               `json:"replaced_by_id,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// ToDocumentResponse converts a document aggregate to its API representation
func ToDocumentResponse(doc *document.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:              doc.ID,
		TenantID:        doc.TenantID,
		SequenceNo:      doc.SequenceNo,
		ContentHash:     doc.ContentHash,
		Direction:       doc.Direction,
		Channel:         doc.Channel,
		ChannelMeta:     doc.ChannelMeta,
		Status:          doc.Status,
		StatusMessage:   doc.StatusMessage,
		Severity:        doc.Severity,
		LatestVersionNo: doc.LatestVersionNo,
		CounterpartID:   doc.CounterpartID,
		ReplacesID:      doc.ReplacesID,
		ReplacedByID:    doc.ReplacedByID,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

// DuplicateDocumentError reports a content-hash conflict, naming the document
// that already holds the identical bytes.
type DuplicateDocumentError struct {
	ExistingID         uuid.UUID
	ExistingSequenceNo int64
}

// Error implements the error interface
func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("identical content already ingested as document #%d (%s)", e.ExistingSequenceNo, e.ExistingID)
}

// Is makes the error match shared.ErrDuplicateContent in errors.Is chains
func (e *DuplicateDocumentError) Is(target error) bool {
	return target == shared.ErrDuplicateContent
}

// IngestionService is the single entry point for documents from every
// channel: direct upload and the email connector both land here.
type IngestionService struct {
	docRepo     document.DocumentRepository
	storage     ObjectStorage
	queue       JobQueue
	audit       AuditSink
	retryPolicy shared.RetryPolicy
	logger      *zap.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	docRepo document.DocumentRepository,
	storage ObjectStorage,
	queue JobQueue,
	audit AuditSink,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		docRepo:     docRepo,
		storage:     storage,
		queue:       queue,
		audit:       audit,
		retryPolicy: shared.DefaultRetryPolicy(),
		logger:      logger,
	}
}

// Ingest deduplicates, stores, numbers and enqueues one document.
// Identical bytes within a tenant are a conflict naming the existing
// document; no new row and no new storage object are created.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*DocumentResponse, error) {
	if len(req.Bytes) == 0 {
		return nil, shared.NewDomainError("EMPTY_CONTENT", "Document content must not be empty")
	}

	sum := sha256.Sum256(req.Bytes)
	contentHash := hex.EncodeToString(sum[:])

	if existing, err := s.docRepo.FindByContentHash(ctx, req.TenantID, contentHash); err == nil {
		return nil, &DuplicateDocumentError{ExistingID: existing.ID, ExistingSequenceNo: existing.SequenceNo}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	storageKey := storageKeyFor(req.TenantID, contentHash, req.Meta.Filename)
	if err := s.storage.Put(ctx, storageKey, req.Bytes, req.MimeType); err != nil {
		return nil, fmt.Errorf("store document bytes: %w", err)
	}

	doc, err := document.NewDocument(req.TenantID, req.ActorID, contentHash, storageKey, req.MimeType, req.Direction, req.Channel, req.Meta)
	if err != nil {
		return nil, err
	}

	if err := s.createWithNextSequence(ctx, doc); err != nil {
		return nil, err
	}

	job := ExtractionJob{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		StorageKey: doc.StorageKey,
		MimeType:   doc.MimeType,
		Direction:  doc.Direction,
		Attempt:    1,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The document exists and is recoverable via re-queue; surface the
		// failure instead of silently leaving it stuck in UPLOADED.
		return nil, fmt.Errorf("enqueue extraction job for document %s: %w", doc.ID, err)
	}

	s.audit.Append(ctx, AuditEntry{
		TenantID:   doc.TenantID,
		ActorID:    req.ActorID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   doc.ID,
		Action:     "document.ingested",
		After:      ToDocumentResponse(doc),
	})

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.String("tenant_id", doc.TenantID.String()),
		zap.Int64("sequence_no", doc.SequenceNo),
		zap.String("channel", string(doc.Channel)),
	)

	return ToDocumentResponse(doc), nil
}

// createWithNextSequence assigns the tenant-monotonic sequential number with
// an optimistic read-then-insert loop. The unique constraint is the final
// arbiter; losing the race retries with a jittered delay, bounded by the
// policy, and exhaustion is terminal.
func (s *IngestionService) createWithNextSequence(ctx context.Context, doc *document.Document) error {
	return shared.Retry(ctx, s.retryPolicy, func(ctx context.Context) error {
		maxSeq, err := s.docRepo.MaxSequenceNo(ctx, doc.TenantID)
		if err != nil {
			return fmt.Errorf("read max sequence: %w", err)
		}
		err = s.docRepo.CreateWithSequence(ctx, doc, maxSeq+1)
		if errors.Is(err, shared.ErrDuplicateContent) {
			existing, lookupErr := s.docRepo.FindByContentHash(ctx, doc.TenantID, doc.ContentHash)
			if lookupErr == nil {
				return &DuplicateDocumentError{ExistingID: existing.ID, ExistingSequenceNo: existing.SequenceNo}
			}
			return err
		}
		return err
	}, func(err error) bool {
		return errors.Is(err, document.ErrDuplicateSequence)
	})
}

// GetDocument returns one document by id
func (s *IngestionService) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

// ListDocuments returns a page of documents for a tenant
func (s *IngestionService) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[DocumentResponse], error) {
	docs, total, err := s.docRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		items = append(items, *ToDocumentResponse(&docs[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// DownloadURL returns a presigned URL for the stored bytes
func (s *IngestionService) DownloadURL(ctx context.Context, tenantID, id uuid.UUID) (string, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignedDownloadURL(ctx, doc.StorageKey, 15*time.Minute)
}

// DeleteDocument removes a document that has not been processed yet,
// including its stored bytes. Processed documents are never hard-deleted.
func (s *IngestionService) DeleteDocument(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !doc.IsDeletable() {
		return shared.NewDomainError("DOCUMENT_NOT_DELETABLE", "Processed documents cannot be deleted")
	}
	if err := s.docRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("failed to delete stored bytes for removed document",
			zap.String("document_id", id.String()),
			zap.Error(err),
		)
	}
	s.audit.Append(ctx, AuditEntry{
		TenantID:   tenantID,
		ActorID:    actorID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   id,
		Action:     "document.deleted",
		Before:     ToDocumentResponse(doc),
	})
	return nil
}

// Replace links a replacement document to the original it supersedes,
// setting the forward and backward links on both sides.
func (s *IngestionService) Replace(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, originalID, replacementID uuid.UUID) error {
	original, err := s.docRepo.FindByIDForTenant(ctx, tenantID, originalID)
	if err != nil {
		return err
	}
	replacement, err := s.docRepo.FindByIDForTenant(ctx, tenantID, replacementID)
	if err != nil {
		return err
	}

	before := ToDocumentResponse(original)
	if err := original.MarkReplaced(replacement.ID); err != nil {
		return err
	}
	replacement.LinkReplacementOf(original.ID)

	if err := s.docRepo.Save(ctx, original); err != nil {
		return err
	}
	if err := s.docRepo.Save(ctx, replacement); err != nil {
		return err
	}

	s.audit.Append(ctx, AuditEntry{
		TenantID:   tenantID,
		ActorID:    actorID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   originalID,
		Action:     "document.replaced",
		Before:     before,
		After:      ToDocumentResponse(original),
	})
	return nil
}

func storageKeyFor(tenantID uuid.UUID, contentHash, filename string) string {
	if filename == "" {
		filename = "document"
	}
	return fmt.Sprintf("tenants/%s/documents/%s/%s", tenantID, contentHash[:16], filename)
}
