package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/mailbox"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type connectorFixture struct {
	svc       *ConnectorService
	repo      *fakeConnectorRepository
	vault     *fakeVault
	scheduler *fakeScheduler
}

func newConnectorFixture() *connectorFixture {
	f := &connectorFixture{
		repo:      newFakeConnectorRepository(),
		vault:     &fakeVault{},
		scheduler: newFakeScheduler(),
	}
	f.svc = NewConnectorService(f.repo, f.vault, f.scheduler, nopAudit{}, zap.NewNop())
	return f
}

func validCreateRequest() CreateConnectorRequest {
	return CreateConnectorRequest{
		Name:         "billing inbox",
		Host:         "imap.example.com",
		Port:         993,
		Username:     "billing@example.com",
		Password:     "hunter2",
		Folder:       "INBOX",
		PollInterval: 10 * time.Minute,
	}
}

func TestConnectorService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("encrypts the password and schedules polling", func(t *testing.T) {
		f := newConnectorFixture()
		tenantID := uuid.New()

		resp, err := f.svc.Create(ctx, tenantID, nil, validCreateRequest())
		require.NoError(t, err)

		stored, err := f.repo.FindByIDForTenant(ctx, tenantID, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "enc:hunter2", stored.EncryptedPassword)
		assert.Equal(t, mailbox.ConnectorStatusIdle, stored.Status)
		assert.True(t, stored.IsActive)

		assert.Equal(t, 10*time.Minute, f.scheduler.scheduled[resp.ID])
	})

	t.Run("refuses to store credentials without a vault", func(t *testing.T) {
		f := newConnectorFixture()
		f.svc = NewConnectorService(f.repo, nil, f.scheduler, nopAudit{}, zap.NewNop())

		_, err := f.svc.Create(ctx, uuid.New(), nil, validCreateRequest())
		assert.ErrorIs(t, err, shared.ErrVaultUnavailable)
		assert.Empty(t, f.repo.conns)
	})

	t.Run("defaults port and folder", func(t *testing.T) {
		f := newConnectorFixture()
		req := validCreateRequest()
		req.Port = 0
		req.Folder = ""

		resp, err := f.svc.Create(ctx, uuid.New(), nil, req)
		require.NoError(t, err)
		assert.Equal(t, 993, resp.Port)
		assert.Equal(t, "INBOX", resp.Folder)
	})
}

func TestConnectorService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("interval change reschedules the job", func(t *testing.T) {
		f := newConnectorFixture()
		tenantID := uuid.New()
		resp, err := f.svc.Create(ctx, tenantID, nil, validCreateRequest())
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, tenantID, resp.ID, UpdateConnectorRequest{PollInterval: 30 * time.Minute})
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, updated.PollInterval)
		assert.Equal(t, 30*time.Minute, f.scheduler.scheduled[resp.ID])
	})

	t.Run("new password is encrypted before persistence", func(t *testing.T) {
		f := newConnectorFixture()
		tenantID := uuid.New()
		resp, err := f.svc.Create(ctx, tenantID, nil, validCreateRequest())
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, tenantID, resp.ID, UpdateConnectorRequest{Password: "correcthorse"})
		require.NoError(t, err)

		stored, err := f.repo.FindByIDForTenant(ctx, tenantID, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "enc:correcthorse", stored.EncryptedPassword)
	})

	t.Run("unknown connector yields not found", func(t *testing.T) {
		f := newConnectorFixture()
		_, err := f.svc.Update(ctx, uuid.New(), uuid.New(), UpdateConnectorRequest{Name: "x"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestConnectorService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newConnectorFixture()
	tenantID := uuid.New()
	resp, err := f.svc.Create(ctx, tenantID, nil, validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, tenantID, resp.ID, nil))
	_, err = f.repo.FindByIDForTenant(ctx, tenantID, resp.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, f.scheduler.removed, resp.ID)
}

func TestConnectorService_Reactivate(t *testing.T) {
	ctx := context.Background()
	f := newConnectorFixture()
	tenantID := uuid.New()
	resp, err := f.svc.Create(ctx, tenantID, nil, validCreateRequest())
	require.NoError(t, err)

	conn, err := f.repo.FindByIDForTenant(ctx, tenantID, resp.ID)
	require.NoError(t, err)
	for i := 0; i < conn.FailureThreshold; i++ {
		conn.FailRun("auth failed")
	}
	require.False(t, conn.IsActive)
	f.scheduler.Remove(conn.ID)

	reactivated, err := f.svc.Reactivate(ctx, tenantID, resp.ID, nil)
	require.NoError(t, err)

	assert.True(t, reactivated.IsActive)
	assert.Equal(t, mailbox.ConnectorStatusIdle, reactivated.Status)
	assert.Equal(t, 0, reactivated.ConsecutiveFailures)
	assert.Contains(t, f.scheduler.scheduled, resp.ID)

	// Reactivating an active connector is an error.
	_, err = f.svc.Reactivate(ctx, tenantID, resp.ID, nil)
	assert.Error(t, err)
}

func TestConnectorService_ScheduleAllActive(t *testing.T) {
	ctx := context.Background()
	f := newConnectorFixture()

	a, err := f.svc.Create(ctx, uuid.New(), nil, validCreateRequest())
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, uuid.New(), nil, validCreateRequest())
	require.NoError(t, err)

	inactive, err := f.repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	for i := 0; i < inactive.FailureThreshold; i++ {
		inactive.FailRun("down")
	}

	f.scheduler = newFakeScheduler()
	f.svc = NewConnectorService(f.repo, f.vault, f.scheduler, nopAudit{}, zap.NewNop())

	require.NoError(t, f.svc.ScheduleAllActive(ctx))
	assert.Contains(t, f.scheduler.scheduled, a.ID)
	assert.NotContains(t, f.scheduler.scheduled, b.ID)
}
