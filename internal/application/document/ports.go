package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/shopspring/decimal"
)

// ObjectStorage is the blob-storage collaborator. Bytes are written before
// any database record references them.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// RawAmount is an extraction output amount: either a number or a localized
// string such as "1.234,56". Exactly one member is set.
type RawAmount struct {
	Number *decimal.Decimal `json:"number,omitempty"`
	Text   string           `json:"text,omitempty"`
}

// RawExtraction is the loosely-shaped output of the extraction collaborator,
// validated once at the pipeline boundary before any derivation runs.
type RawExtraction struct {
	CounterpartName    string             `json:"counterpart_name,omitempty"`
	CounterpartTaxID   string             `json:"counterpart_tax_id,omitempty"`
	CounterpartAddress string             `json:"counterpart_address,omitempty"`
	CounterpartEmail   string             `json:"counterpart_email,omitempty"`
	CounterpartIBAN    string             `json:"counterpart_iban,omitempty"`
	InvoiceNumber      string             `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time         `json:"invoice_date,omitempty"`
	DeliveryDate       *time.Time         `json:"delivery_date,omitempty"`
	DueDate            *time.Time         `json:"due_date,omitempty"`
	NetAmount          *RawAmount         `json:"net_amount,omitempty"`
	VatAmount          *RawAmount         `json:"vat_amount,omitempty"`
	GrossAmount        *RawAmount         `json:"gross_amount,omitempty"`
	VatRate            *RawAmount         `json:"vat_rate,omitempty"`
	VatBreakdown       []RawVatLine       `json:"vat_breakdown,omitempty"`
	Currency           string             `json:"currency,omitempty"`
	Category           string             `json:"category,omitempty"`
	Confidences        map[string]float64 `json:"confidences,omitempty"`
	StageTag           string             `json:"stage_tag,omitempty"`
}

// RawVatLine is one breakdown entry as returned by the extractor
type RawVatLine struct {
	Rate  *RawAmount `json:"rate,omitempty"`
	Net   *RawAmount `json:"net,omitempty"`
	Vat   *RawAmount `json:"vat,omitempty"`
	Gross *RawAmount `json:"gross,omitempty"`
}

// Extractor is the external extraction collaborator. The direction tells it
// which counterpart role (issuer vs recipient) to extract.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string, direction document.Direction) (*RawExtraction, error)
}

// RuleEvaluator is the compliance rule collaborator. It returns an ordered
// check list; aggregation happens here, not in the catalogue.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, fields document.ExtractedFields, direction document.Direction) ([]document.Check, error)
}

// ExtractionJob is the payload carried on the extraction queue
type ExtractionJob struct {
	DocumentID uuid.UUID          `json:"document_id"`
	TenantID   uuid.UUID          `json:"tenant_id"`
	StorageKey string             `json:"storage_key"`
	MimeType   string             `json:"mime_type"`
	Direction  document.Direction `json:"direction"`
	Attempt    int                `json:"attempt"`
}

// JobKey derives the redelivery dedup key for persisted versions
func (j ExtractionJob) JobKey() string {
	return fmt.Sprintf("%s:%d", j.DocumentID, j.Attempt)
}

// JobQueue enqueues extraction jobs with at-least-once delivery
type JobQueue interface {
	Enqueue(ctx context.Context, job ExtractionJob) error
}

// AuditEntry is one appended audit record
type AuditEntry struct {
	TenantID   uuid.UUID
	ActorID    *uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	Before     any
	After      any
}

// AuditSink appends audit events. Implementations are non-blocking; a failed
// append is observable through the sink's own path but never propagates here.
type AuditSink interface {
	Append(ctx context.Context, entry AuditEntry)
}

// EntityResolver finds or creates the counterpart entity for a document
type EntityResolver interface {
	ResolveVendor(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error)
	ResolveCustomer(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error)
}
