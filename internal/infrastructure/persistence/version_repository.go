package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormVersionRepository implements VersionRepository using GORM.
// Versions are append-only: there is no update or delete path.
type GormVersionRepository struct {
	db *gorm.DB
}

// NewGormVersionRepository creates a new GormVersionRepository
func NewGormVersionRepository(db *gorm.DB) *GormVersionRepository {
	return &GormVersionRepository{db: db}
}

// Append inserts a new version row
func (r *GormVersionRepository) Append(ctx context.Context, version *document.ExtractedVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

// LatestForDocument returns the highest-numbered version of a document
func (r *GormVersionRepository) LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*document.ExtractedVersion, error) {
	var version document.ExtractedVersion
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("version_no DESC").
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &version, nil
}

// FindByJobKey returns the version produced by a given extraction job, if any
func (r *GormVersionRepository) FindByJobKey(ctx context.Context, tenantID uuid.UUID, jobKey string) (*document.ExtractedVersion, error) {
	var version document.ExtractedVersion
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND job_key = ?", tenantID, jobKey).
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &version, nil
}

// ListForDocument returns all versions of a document, oldest first
func (r *GormVersionRepository) ListForDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]document.ExtractedVersion, error) {
	var versions []document.ExtractedVersion
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("version_no").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}
