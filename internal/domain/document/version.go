package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VersionSource distinguishes automated extraction from manual correction
type VersionSource string

const (
	VersionSourceAutomated VersionSource = "AUTOMATED"
	VersionSourceManual    VersionSource = "MANUAL"
)

// VatLine is one entry of a multi-rate vat breakdown
type VatLine struct {
	Rate  decimal.Decimal `json:"rate"`
	Net   decimal.Decimal `json:"net"`
	Vat   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

// ExtractedFields is the typed snapshot of parsed financial fields.
// Optional fields are pointers; absence means the extractor did not return them.
type ExtractedFields struct {
	CounterpartName    string           `json:"counterpart_name,omitempty"`
	CounterpartTaxID   string           `json:"counterpart_tax_id,omitempty"`
	CounterpartAddress string           `json:"counterpart_address,omitempty"`
	CounterpartEmail   string           `json:"counterpart_email,omitempty"`
	CounterpartIBAN    string           `json:"counterpart_iban,omitempty"`
	InvoiceNumber      string           `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time       `json:"invoice_date,omitempty"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
	DueDate            *time.Time       `json:"due_date,omitempty"`
	NetAmount          *decimal.Decimal `json:"net_amount,omitempty"`
	VatAmount          *decimal.Decimal `json:"vat_amount,omitempty"`
	GrossAmount        *decimal.Decimal `json:"gross_amount,omitempty"`
	VatRate            *decimal.Decimal `json:"vat_rate,omitempty"`
	VatBreakdown       []VatLine        `json:"vat_breakdown,omitempty"`
	Currency           string           `json:"currency,omitempty"`
	Category           string           `json:"category,omitempty"`
}

// ExtractedVersion is an immutable, append-only snapshot of extracted fields.
// "Latest" is always the highest VersionNo for a document.
type ExtractedVersion struct {
	shared.TenantAggregateRoot
	DocumentID        uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_version_doc_no,priority:1"`
	VersionNo         int                `gorm:"not null;uniqueIndex:idx_version_doc_no,priority:2"`
	Source            VersionSource      `gorm:"type:varchar(10);not null"`
	Fields            ExtractedFields    `gorm:"type:jsonb;serializer:json"`
	Confidences       map[string]float64 `gorm:"type:jsonb;serializer:json"`
	OverallConfidence float64            `gorm:"not null;default:0"`
	StageTag          string             `gorm:"type:varchar(100)"`
	JobKey            string             `gorm:"type:varchar(100);index"`
	EditorID          *uuid.UUID         `gorm:"type:uuid"`
	Reason            string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ExtractedVersion) TableName() string {
	return "extracted_versions"
}

// NewAutomatedVersion creates an extraction-produced version. jobKey is the
// redelivery dedup key derived from (documentID, attempt).
func NewAutomatedVersion(tenantID, documentID uuid.UUID, versionNo int, fields ExtractedFields, confidences map[string]float64, overall float64, stageTag, jobKey string) *ExtractedVersion {
	return &ExtractedVersion{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentID:          documentID,
		VersionNo:           versionNo,
		Source:              VersionSourceAutomated,
		Fields:              fields,
		Confidences:         confidences,
		OverallConfidence:   overall,
		StageTag:            stageTag,
		JobKey:              jobKey,
	}
}

// NewManualVersion creates a correction version with editor and reason
func NewManualVersion(tenantID, documentID uuid.UUID, versionNo int, fields ExtractedFields, editorID uuid.UUID, reason string) (*ExtractedVersion, error) {
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "A correction reason is required")
	}
	return &ExtractedVersion{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentID:          documentID,
		VersionNo:           versionNo,
		Source:              VersionSourceManual,
		Fields:              fields,
		EditorID:            &editorID,
		Reason:              reason,
	}, nil
}

// Overlay builds the field set of a successor version: every field present in
// patch replaces the prior value, everything else carries over unchanged.
func (f ExtractedFields) Overlay(patch FieldPatch) ExtractedFields {
	next := f
	if patch.CounterpartName != nil {
		next.CounterpartName = *patch.CounterpartName
	}
	if patch.CounterpartTaxID != nil {
		next.CounterpartTaxID = *patch.CounterpartTaxID
	}
	if patch.CounterpartAddress != nil {
		next.CounterpartAddress = *patch.CounterpartAddress
	}
	if patch.CounterpartEmail != nil {
		next.CounterpartEmail = *patch.CounterpartEmail
	}
	if patch.CounterpartIBAN != nil {
		next.CounterpartIBAN = *patch.CounterpartIBAN
	}
	if patch.InvoiceNumber != nil {
		next.InvoiceNumber = *patch.InvoiceNumber
	}
	if patch.InvoiceDate != nil {
		next.InvoiceDate = patch.InvoiceDate
	}
	if patch.DeliveryDate != nil {
		next.DeliveryDate = patch.DeliveryDate
	}
	if patch.DueDate != nil {
		next.DueDate = patch.DueDate
	}
	if patch.NetAmount != nil {
		next.NetAmount = patch.NetAmount
	}
	if patch.VatAmount != nil {
		next.VatAmount = patch.VatAmount
	}
	if patch.GrossAmount != nil {
		next.GrossAmount = patch.GrossAmount
	}
	if patch.VatRate != nil {
		next.VatRate = patch.VatRate
	}
	if patch.VatBreakdown != nil {
		next.VatBreakdown = patch.VatBreakdown
	}
	if patch.Currency != nil {
		next.Currency = *patch.Currency
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	return next
}

// FieldPatch is a partial update of extracted fields. A nil member means
// "keep the prior version's value". A supplied gross amount deliberately does
// NOT recompute net/vat from the prior rate; the editor's values win verbatim.
type FieldPatch struct {
	CounterpartName    *string          `json:"counterpart_name,omitempty"`
	CounterpartTaxID   *string          `json:"counterpart_tax_id,omitempty"`
	CounterpartAddress *string          `json:"counterpart_address,omitempty"`
	CounterpartEmail   *string          `json:"counterpart_email,omitempty"`
	CounterpartIBAN    *string          `json:"counterpart_iban,omitempty"`
	InvoiceNumber      *string          `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time       `json:"invoice_date,omitempty"`
	DeliveryDate       *time.Time       `json:"delivery_date,omitempty"`
	DueDate            *time.Time       `json:"due_date,omitempty"`
	NetAmount          *decimal.Decimal `json:"net_amount,omitempty"`
	VatAmount          *decimal.Decimal `json:"vat_amount,omitempty"`
	GrossAmount        *decimal.Decimal `json:"gross_amount,omitempty"`
	VatRate            *decimal.Decimal `json:"vat_rate,omitempty"`
	VatBreakdown       []VatLine        `json:"vat_breakdown,omitempty"`
	Currency           *string          `json:"currency,omitempty"`
	Category           *string          `json:"category,omitempty"`
}
