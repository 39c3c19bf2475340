package partner

import (
	"context"

	"github.com/google/uuid"
)

// VendorRepository defines the persistence interface for vendors
type VendorRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Vendor, error)
	FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*Vendor, error)
	// FindByNormalizedName matches on normalized name but only among vendors
	// without a tax id on file, so a name-only match can never merge into an
	// already-disambiguated entity.
	FindByNormalizedName(ctx context.Context, tenantID uuid.UUID, normalizedName string) (*Vendor, error)
	Save(ctx context.Context, vendor *Vendor) error
}

// CustomerRepository defines the persistence interface for customers
type CustomerRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*Customer, error)
	FindByNormalizedName(ctx context.Context, tenantID uuid.UUID, normalizedName string) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}
