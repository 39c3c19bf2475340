package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdocs/backend/internal/domain/partner"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

func newTestVendor(t *testing.T, tenantID uuid.UUID, name, taxID string) *partner.Vendor {
	t.Helper()
	vendor, err := partner.NewVendor(tenantID, name, taxID)
	require.NoError(t, err)
	return vendor
}

func TestGormVendorRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("finds by tax id within the tenant", func(t *testing.T) {
		db := setupDocumentTestDB(t)
		repo := NewGormVendorRepository(db)
		tenantID := uuid.New()

		require.NoError(t, repo.Save(ctx, newTestVendor(t, tenantID, "Acme GmbH", "DE123456789")))

		found, err := repo.FindByTaxID(ctx, tenantID, "DE123456789")
		require.NoError(t, err)
		assert.Equal(t, "Acme GmbH", found.Name)

		_, err = repo.FindByTaxID(ctx, uuid.New(), "DE123456789")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("name lookup only matches vendors without a tax id", func(t *testing.T) {
		db := setupDocumentTestDB(t)
		repo := NewGormVendorRepository(db)
		tenantID := uuid.New()

		require.NoError(t, repo.Save(ctx, newTestVendor(t, tenantID, "Acme GmbH", "DE123456789")))
		unregistered := newTestVendor(t, tenantID, "Acme GmbH", "")
		require.NoError(t, repo.Save(ctx, unregistered))

		found, err := repo.FindByNormalizedName(ctx, tenantID, partner.NormalizeName("Acme GmbH"))
		require.NoError(t, err)
		assert.Equal(t, unregistered.ID, found.ID)
	})

	t.Run("tax id is unique within a tenant", func(t *testing.T) {
		db := setupDocumentTestDB(t)
		repo := NewGormVendorRepository(db)
		tenantID := uuid.New()

		require.NoError(t, repo.Save(ctx, newTestVendor(t, tenantID, "Acme GmbH", "DE123456789")))
		err := repo.Save(ctx, newTestVendor(t, tenantID, "Acme Duplicate", "DE123456789"))
		assert.Error(t, err)
	})

	t.Run("same tax id in another tenant is fine", func(t *testing.T) {
		db := setupDocumentTestDB(t)
		repo := NewGormVendorRepository(db)

		require.NoError(t, repo.Save(ctx, newTestVendor(t, uuid.New(), "Acme GmbH", "DE123456789")))
		require.NoError(t, repo.Save(ctx, newTestVendor(t, uuid.New(), "Acme GmbH", "DE123456789")))
	})

	t.Run("vendors without a tax id never collide", func(t *testing.T) {
		db := setupDocumentTestDB(t)
		repo := NewGormVendorRepository(db)
		tenantID := uuid.New()

		require.NoError(t, repo.Save(ctx, newTestVendor(t, tenantID, "Corner Cafe", "")))
		require.NoError(t, repo.Save(ctx, newTestVendor(t, tenantID, "Hardware Store", "")))
	})
}
