package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/mailbox"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormConnectorRepository implements ConnectorRepository using GORM
type GormConnectorRepository struct {
	db *gorm.DB
}

// NewGormConnectorRepository creates a new GormConnectorRepository
func NewGormConnectorRepository(db *gorm.DB) *GormConnectorRepository {
	return &GormConnectorRepository{db: db}
}

// FindByID finds a connector by ID across tenants. Used by the scheduler,
// which only knows connector ids.
func (r *GormConnectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*mailbox.Connector, error) {
	var conn mailbox.Connector
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByIDForTenant finds a connector by ID within a tenant
func (r *GormConnectorRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*mailbox.Connector, error) {
	var conn mailbox.Connector
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindAllForTenant finds all connectors of a tenant
func (r *GormConnectorRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]mailbox.Connector, error) {
	var conns []mailbox.Connector
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindAllActive finds all active connectors across tenants
func (r *GormConnectorRepository) FindAllActive(ctx context.Context) ([]mailbox.Connector, error) {
	var conns []mailbox.Connector
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save persists connector changes
func (r *GormConnectorRepository) Save(ctx context.Context, connector *mailbox.Connector) error {
	return r.db.WithContext(ctx).Save(connector).Error
}

// Delete removes a connector
func (r *GormConnectorRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&mailbox.Connector{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
