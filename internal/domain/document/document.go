package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Status represents the lifecycle status of a document
type Status string

const (
	StatusUploaded       Status = "UPLOADED"
	StatusProcessing     Status = "PROCESSING"
	StatusProcessed      Status = "PROCESSED"
	StatusReviewRequired Status = "REVIEW_REQUIRED"
	StatusError          Status = "ERROR"
	StatusApproved       Status = "APPROVED"
	StatusReplaced       Status = "REPLACED"
)

// Direction distinguishes incoming (payable) from outgoing (receivable) documents
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Channel identifies how a document entered the system
type Channel string

const (
	ChannelUpload Channel = "upload"
	ChannelEmail  Channel = "email"
)

// ChannelMetadata carries origin details for a document
type ChannelMetadata struct {
	Filename       string `json:"filename,omitempty"`
	EmailSender    string `json:"email_sender,omitempty"`
	EmailSubject   string `json:"email_subject,omitempty"`
	EmailMessageID string `json:"email_message_id,omitempty"`
}

// Document is one ingested accounting record, incoming or outgoing.
// It is the aggregate root for the document pipeline.
type Document struct {
	shared.TenantAggregateRoot
	// Unique per tenant, not globally; the composite indexes over the
	// embedded tenant column are created by persistence.AutoMigrate.
	SequenceNo      int64           `gorm:"not null"`
	ContentHash     string          `gorm:"type:varchar(64);not null"`
	StorageKey      string          `gorm:"type:varchar(512);not null"`
	MimeType        string          `gorm:"type:varchar(100);not null"`
	Direction       Direction       `gorm:"type:varchar(10);not null"`
	Channel         Channel         `gorm:"type:varchar(10);not null;default:'upload'"`
	ChannelMeta     ChannelMetadata `gorm:"type:jsonb;serializer:json"`
	Status          Status          `gorm:"type:varchar(20);not null;default:'UPLOADED';index"`
	StatusMessage   string          `gorm:"type:text"`
	Severity        Severity        `gorm:"type:varchar(10);not null;default:'pending'"`
	LatestVersionNo int             `gorm:"not null;default:0"`
	CounterpartID   *uuid.UUID      `gorm:"type:uuid;index"`
	ReplacesID      *uuid.UUID      `gorm:"type:uuid"`
	ReplacedByID    *uuid.UUID      `gorm:"type:uuid"`
	UploadedBy      *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a document in the UPLOADED state. The sequential number
// is assigned by the repository at insert time.
func NewDocument(tenantID uuid.UUID, actorID *uuid.UUID, contentHash, storageKey, mimeType string, direction Direction, channel Channel, meta ChannelMetadata) (*Document, error) {
	if contentHash == "" {
		return nil, shared.NewDomainError("INVALID_CONTENT_HASH", "Content hash is required")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key is required")
	}
	if direction != DirectionIncoming && direction != DirectionOutgoing {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Direction must be incoming or outgoing")
	}
	if channel != ChannelUpload && channel != ChannelEmail {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Channel must be upload or email")
	}

	doc := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContentHash:         contentHash,
		StorageKey:          storageKey,
		MimeType:            mimeType,
		Direction:           direction,
		Channel:             channel,
		ChannelMeta:         meta,
		Status:              StatusUploaded,
		Severity:            SeverityPending,
		UploadedBy:          actorID,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// StartProcessing transitions the document into extraction
func (d *Document) StartProcessing() error {
	switch d.Status {
	case StatusUploaded, StatusError:
	default:
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "Document is not awaiting processing")
	}
	d.setStatus(StatusProcessing, "")
	return nil
}

// FinishProcessing records the validation outcome of an extraction run.
// Validation severity and status always move together.
func (d *Document) FinishProcessing(severity Severity, versionNo int) error {
	if d.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "Document is not being processed")
	}
	d.Severity = severity
	d.LatestVersionNo = versionNo
	if severity == SeverityValid {
		d.setStatus(StatusProcessed, "")
	} else {
		d.setStatus(StatusReviewRequired, "")
	}
	return nil
}

// MarkError records a pipeline failure. Allowed from any non-terminal state so
// that a crash mid-run always leaves a diagnosable document behind.
func (d *Document) MarkError(message string) error {
	if d.Status == StatusReplaced {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "Replaced documents are immutable")
	}
	d.setStatus(StatusError, message)
	return nil
}

// Approve marks a reviewed document as approved
func (d *Document) Approve() error {
	if d.Status != StatusProcessed && d.Status != StatusReviewRequired {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "Only processed documents can be approved")
	}
	d.setStatus(StatusApproved, "")
	return nil
}

// MarkReplaced links this document to its legally mandated replacement
func (d *Document) MarkReplaced(replacementID uuid.UUID) error {
	if d.ReplacedByID != nil {
		return shared.NewDomainError("ALREADY_REPLACED", "Document has already been replaced")
	}
	switch d.Status {
	case StatusProcessed, StatusReviewRequired, StatusApproved:
	default:
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "Only processed documents can be replaced")
	}
	d.ReplacedByID = &replacementID
	d.setStatus(StatusReplaced, "")
	d.AddDomainEvent(NewDocumentReplacedEvent(d, replacementID))
	return nil
}

// LinkReplacementOf records the backward link on the replacement document
func (d *Document) LinkReplacementOf(originalID uuid.UUID) {
	d.ReplacesID = &originalID
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}

// SetCounterpart links the resolved vendor or customer
func (d *Document) SetCounterpart(entityID uuid.UUID) {
	d.CounterpartID = &entityID
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}

// IsDeletable reports whether the document may still be removed.
// Once processing has produced data the record must be kept for audit.
func (d *Document) IsDeletable() bool {
	return d.Status == StatusUploaded
}

func (d *Document) setStatus(status Status, message string) {
	from := d.Status
	d.Status = status
	d.StatusMessage = message
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentStatusChangedEvent(d, from, status))
}
