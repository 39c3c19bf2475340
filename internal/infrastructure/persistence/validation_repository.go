package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormValidationRepository implements ValidationRepository using GORM
type GormValidationRepository struct {
	db *gorm.DB
}

// NewGormValidationRepository creates a new GormValidationRepository
func NewGormValidationRepository(db *gorm.DB) *GormValidationRepository {
	return &GormValidationRepository{db: db}
}

// SaveResultAndSyncDocument writes the validation result and the document's
// derived fields in one transaction, so severity, status and latest version
// never drift apart under a crash between the two writes.
func (r *GormValidationRepository) SaveResultAndSyncDocument(ctx context.Context, result *document.ValidationResult, doc *document.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		return tx.Model(&document.Document{}).
			Where("tenant_id = ? AND id = ?", doc.TenantID, doc.ID).
			Updates(map[string]any{
				"severity":          doc.Severity,
				"status":            doc.Status,
				"latest_version_no": doc.LatestVersionNo,
				"updated_at":        doc.UpdatedAt,
			}).Error
	})
}

// LatestForDocument returns the most recent validation result for a document
func (r *GormValidationRepository) LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*document.ValidationResult, error) {
	var result document.ValidationResult
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("version_no DESC, created_at DESC").
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}
