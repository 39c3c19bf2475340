package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/mailbox"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnector(t *testing.T, tenantID uuid.UUID) *mailbox.Connector {
	t.Helper()
	conn, err := mailbox.NewConnector(tenantID, "billing inbox", "imap.example.com", 993,
		"billing@example.com", "enc:secret", "INBOX", 5*time.Minute)
	require.NoError(t, err)
	return conn
}

func TestGormConnectorRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDocumentTestDB(t)
	repo := NewGormConnectorRepository(db)
	tenantID := uuid.New()

	conn := newTestConnector(t, tenantID)
	require.NoError(t, repo.Save(ctx, conn))

	t.Run("round-trips settings and state", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, "imap.example.com", found.Host)
		assert.Equal(t, "enc:secret", found.EncryptedPassword)
		assert.Equal(t, mailbox.DefaultAllowedMimeTypes, found.AllowedMimeTypes)
		assert.Equal(t, 5*time.Minute, found.PollInterval)
		assert.True(t, found.IsActive)
	})

	t.Run("cursor and health survive a save", func(t *testing.T) {
		require.NoError(t, conn.BeginRun())
		conn.CompleteRun("1042")
		require.NoError(t, repo.Save(ctx, conn))

		found, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, "1042", found.Cursor)
		assert.Equal(t, mailbox.ConnectorStatusSuccess, found.Status)
		require.NotNil(t, found.LastSyncAt)
	})

	t.Run("active listing skips deactivated connectors", func(t *testing.T) {
		dead := newTestConnector(t, tenantID)
		for i := 0; i < dead.FailureThreshold; i++ {
			dead.FailRun("auth failed")
		}
		require.NoError(t, repo.Save(ctx, dead))

		// First persist happens after deactivation; the stored row must
		// not come back active.
		stored, err := repo.FindByIDForTenant(ctx, tenantID, dead.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		active, err := repo.FindAllActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, conn.ID, active[0].ID)

		all, err := repo.FindAllForTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("wrong tenant sees nothing", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), conn.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("delete removes the connector", func(t *testing.T) {
		victim := newTestConnector(t, tenantID)
		require.NoError(t, repo.Save(ctx, victim))
		require.NoError(t, repo.Delete(ctx, tenantID, victim.ID))
		_, err := repo.FindByID(ctx, victim.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
