package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForTenant finds a document by ID within a tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByContentHash finds the document carrying the given content hash
func (r *GormDocumentRepository) FindByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*document.Document, error) {
	var doc document.Document
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND content_hash = ?", tenantID, hash).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByEmailKey finds the document ingested for a mail attachment
func (r *GormDocumentRepository) FindByEmailKey(ctx context.Context, tenantID uuid.UUID, messageID, filename string) (*document.Document, error) {
	metaFilter := "channel_meta->>'email_message_id' = ? AND channel_meta->>'filename' = ?"
	if r.db.Dialector.Name() == "sqlite" {
		metaFilter = "json_extract(channel_meta, '$.email_message_id') = ? AND json_extract(channel_meta, '$.filename') = ?"
	}
	var doc document.Document
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where(metaFilter, messageID, filename).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindAllForTenant finds documents for a tenant with pagination
func (r *GormDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]document.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&document.Document{}).Where("tenant_id = ?", tenantID)

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if direction, ok := filter.Filters["direction"]; ok {
		query = query.Where("direction = ?", direction)
	}
	if severity, ok := filter.Filters["severity"]; ok {
		query = query.Where("severity = ?", severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, documentSortFields, "sequence_no")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var docs []document.Document
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// FindValidated returns documents that already carry an extracted version
func (r *GormDocumentRepository) FindValidated(ctx context.Context, tenantID uuid.UUID) ([]document.Document, error) {
	var docs []document.Document
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND latest_version_no > 0 AND status <> ?", tenantID, document.StatusReplaced).
		Order("sequence_no").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// MaxSequenceNo returns the highest assigned sequential number for a tenant
func (r *GormDocumentRepository) MaxSequenceNo(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var max int64
	if err := r.db.WithContext(ctx).
		Model(&document.Document{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// CreateWithSequence inserts the document under the given sequential number.
// The unique indexes arbitrate races: a taken number maps to
// ErrDuplicateSequence, a concurrently inserted identical hash to
// shared.ErrDuplicateContent.
func (r *GormDocumentRepository) CreateWithSequence(ctx context.Context, doc *document.Document, sequenceNo int64) error {
	doc.SequenceNo = sequenceNo
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		// Postgres names the violated index, sqlite names the columns.
		msg := err.Error()
		switch {
		case strings.Contains(msg, "idx_doc_tenant_seq"), strings.Contains(msg, "documents.sequence_no"):
			return document.ErrDuplicateSequence
		case strings.Contains(msg, "idx_doc_tenant_hash"), strings.Contains(msg, "documents.content_hash"):
			return shared.ErrDuplicateContent
		}
		return err
	}
	return nil
}

// Save persists document changes
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// Delete removes a document
func (r *GormDocumentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&document.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
