package document

import (
	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Aggregate type constant for Document
const AggregateTypeDocument = "Document"

// Event type constants for Document
const (
	EventTypeDocumentCreated       = "DocumentCreated"
	EventTypeDocumentStatusChanged = "DocumentStatusChanged"
	EventTypeDocumentReplaced      = "DocumentReplaced"
)

// DocumentCreatedEvent is published when a document is ingested
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID  uuid.UUID `json:"document_id"`
	SequenceNo  int64     `json:"sequence_no"`
	ContentHash string    `json:"content_hash"`
	Direction   Direction `json:"direction"`
	Channel     Channel   `json:"channel"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(doc *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, doc.ID, doc.TenantID),
		DocumentID:      doc.ID,
		SequenceNo:      doc.SequenceNo,
		ContentHash:     doc.ContentHash,
		Direction:       doc.Direction,
		Channel:         doc.Channel,
	}
}

// DocumentStatusChangedEvent is published on every lifecycle transition
type DocumentStatusChangedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Message    string    `json:"message,omitempty"`
}

// NewDocumentStatusChangedEvent creates a new DocumentStatusChangedEvent
func NewDocumentStatusChangedEvent(doc *Document, from, to Status) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, AggregateTypeDocument, doc.ID, doc.TenantID),
		DocumentID:      doc.ID,
		FromStatus:      from,
		ToStatus:        to,
		Message:         doc.StatusMessage,
	}
}

// DocumentReplacedEvent is published when a replacement document supersedes this one
type DocumentReplacedEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID `json:"document_id"`
	ReplacementID uuid.UUID `json:"replacement_id"`
}

// NewDocumentReplacedEvent creates a new DocumentReplacedEvent
func NewDocumentReplacedEvent(doc *Document, replacementID uuid.UUID) *DocumentReplacedEvent {
	return &DocumentReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentReplaced, AggregateTypeDocument, doc.ID, doc.TenantID),
		DocumentID:      doc.ID,
		ReplacementID:   replacementID,
	}
}
