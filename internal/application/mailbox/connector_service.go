package mailbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/mailbox"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateConnectorRequest carries the settings for a new mailbox connector.
// Password arrives in plaintext over TLS and is encrypted before persistence.
type CreateConnectorRequest struct {
	Name             string        `json:"name" binding:"required"`
	Host             string        `json:"host" binding:"required"`
	Port             int           `json:"port"`
	Username         string        `json:"username" binding:"required"`
	Password         string        `json:"password" binding:"required"`
	Folder           string        `json:"folder"`
	PollInterval     time.Duration `json:"poll_interval"`
	AllowedMimeTypes []string      `json:"allowed_mime_types"`
}

// UpdateConnectorRequest carries a partial connector update
type UpdateConnectorRequest struct {
	Name             string        `json:"name"`
	Username         string        `json:"username"`
	Password         string        `json:"password"`
	Folder           string        `json:"folder"`
	PollInterval     time.Duration `json:"poll_interval"`
	AllowedMimeTypes []string      `json:"allowed_mime_types"`
}

// ConnectorResponse represents a connector in API responses. Credentials
// never leave the service.
type ConnectorResponse struct {
	ID                  uuid.UUID               `json:"id"`
	TenantID            uuid.UUID               `json:"tenant_id"`
	Name                string                  `json:"name"`
	Host                string                  `json:"host"`
	Port                int                     `json:"port"`
	Username            string                  `json:"username"`
	Folder              string                  `json:"folder"`
	PollInterval        time.Duration           `json:"poll_interval"`
	AllowedMimeTypes    []string                `json:"allowed_mime_types"`
	Status              mailbox.ConnectorStatus `json:"status"`
	IsActive            bool                    `json:"is_active"`
	ConsecutiveFailures int                     `json:"consecutive_failures"`
	LastError           string                  `json:"last_error,omitempty"`
	LastSyncAt          *time.Time              `json:"last_sync_at,omitempty"`
}

// ToConnectorResponse converts a connector to its API representation
func ToConnectorResponse(c *mailbox.Connector) *ConnectorResponse {
	return &ConnectorResponse{
		ID:                  c.ID,
		TenantID:            c.TenantID,
		Name:                c.Name,
		Host:                c.Host,
		Port:                c.Port,
		Username:            c.Username,
		Folder:              c.Folder,
		PollInterval:        c.PollInterval,
		AllowedMimeTypes:    c.AllowedMimeTypes,
		Status:              c.Status,
		IsActive:            c.IsActive,
		ConsecutiveFailures: c.ConsecutiveFailures,
		LastError:           c.LastError,
		LastSyncAt:          c.LastSyncAt,
	}
}

// ConnectorService manages mailbox connector lifecycle
type ConnectorService struct {
	connectorRepo mailbox.ConnectorRepository
	vault         Vault
	scheduler     SyncScheduler
	audit         appdocument.AuditSink
	logger        *zap.Logger
}

// NewConnectorService creates a new ConnectorService
func NewConnectorService(
	connectorRepo mailbox.ConnectorRepository,
	vault Vault,
	scheduler SyncScheduler,
	audit appdocument.AuditSink,
	logger *zap.Logger,
) *ConnectorService {
	return &ConnectorService{
		connectorRepo: connectorRepo,
		vault:         vault,
		scheduler:     scheduler,
		audit:         audit,
		logger:        logger,
	}
}

// Create registers a connector and schedules its polling job. Without a
// working vault no connector can be stored at all.
func (s *ConnectorService) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateConnectorRequest) (*ConnectorResponse, error) {
	if s.vault == nil {
		return nil, shared.ErrVaultUnavailable
	}
	encrypted, err := s.vault.Encrypt(req.Password)
	if err != nil {
		return nil, shared.ErrVaultUnavailable
	}

	port := req.Port
	if port == 0 {
		port = 993
	}

	conn, err := mailbox.NewConnector(tenantID, req.Name, req.Host, port, req.Username, encrypted, req.Folder, req.PollInterval)
	if err != nil {
		return nil, err
	}
	if len(req.AllowedMimeTypes) > 0 {
		conn.AllowedMimeTypes = req.AllowedMimeTypes
	}

	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.scheduler.Schedule(conn.ID, conn.PollInterval)

	s.audit.Append(ctx, appdocument.AuditEntry{
		TenantID:   tenantID,
		ActorID:    actorID,
		EntityType: mailbox.AggregateTypeConnector,
		EntityID:   conn.ID,
		Action:     "connector.created",
		After:      map[string]any{"host": conn.Host, "username": conn.Username, "folder": conn.Folder},
	})

	s.logger.Info("mailbox connector created",
		zap.String("connector_id", conn.ID.String()),
		zap.String("host", conn.Host),
		zap.Duration("poll_interval", conn.PollInterval),
	)
	return ToConnectorResponse(conn), nil
}

// Update applies a partial settings change and reschedules if the interval moved
func (s *ConnectorService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateConnectorRequest) (*ConnectorResponse, error) {
	conn, err := s.connectorRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		conn.Name = req.Name
	}
	if req.Folder != "" {
		conn.Folder = req.Folder
	}
	if len(req.AllowedMimeTypes) > 0 {
		conn.AllowedMimeTypes = req.AllowedMimeTypes
	}

	if req.Password != "" {
		if s.vault == nil {
			return nil, shared.ErrVaultUnavailable
		}
		encrypted, err := s.vault.Encrypt(req.Password)
		if err != nil {
			return nil, shared.ErrVaultUnavailable
		}
		username := req.Username
		if username == "" {
			username = conn.Username
		}
		if err := conn.UpdateCredentials(username, encrypted); err != nil {
			return nil, err
		}
	} else if req.Username != "" {
		if err := conn.UpdateCredentials(req.Username, conn.EncryptedPassword); err != nil {
			return nil, err
		}
	}

	rescheduled := false
	if req.PollInterval >= time.Minute && req.PollInterval != conn.PollInterval {
		conn.PollInterval = req.PollInterval
		rescheduled = true
	}

	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		return nil, err
	}
	if rescheduled && conn.IsActive {
		s.scheduler.Schedule(conn.ID, conn.PollInterval)
	}

	return ToConnectorResponse(conn), nil
}

// Get returns one connector
func (s *ConnectorService) Get(ctx context.Context, tenantID, id uuid.UUID) (*ConnectorResponse, error) {
	conn, err := s.connectorRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToConnectorResponse(conn), nil
}

// List returns all connectors of a tenant
func (s *ConnectorService) List(ctx context.Context, tenantID uuid.UUID) ([]ConnectorResponse, error) {
	conns, err := s.connectorRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectorResponse, 0, len(conns))
	for i := range conns {
		out = append(out, *ToConnectorResponse(&conns[i]))
	}
	return out, nil
}

// Delete removes a connector and its polling job
func (s *ConnectorService) Delete(ctx context.Context, tenantID, id uuid.UUID, actorID *uuid.UUID) error {
	conn, err := s.connectorRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.connectorRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.scheduler.Remove(id)

	s.audit.Append(ctx, appdocument.AuditEntry{
		TenantID:   tenantID,
		ActorID:    actorID,
		EntityType: mailbox.AggregateTypeConnector,
		EntityID:   id,
		Action:     "connector.deleted",
		Before:     map[string]any{"host": conn.Host, "username": conn.Username},
	})
	return nil
}

// Reactivate re-enables a deactivated connector and restores its schedule
func (s *ConnectorService) Reactivate(ctx context.Context, tenantID, id uuid.UUID, actorID *uuid.UUID) (*ConnectorResponse, error) {
	conn, err := s.connectorRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := conn.Reactivate(); err != nil {
		return nil, err
	}
	if err := s.connectorRepo.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.scheduler.Schedule(conn.ID, conn.PollInterval)

	s.audit.Append(ctx, appdocument.AuditEntry{
		TenantID:   tenantID,
		ActorID:    actorID,
		EntityType: mailbox.AggregateTypeConnector,
		EntityID:   id,
		Action:     "connector.reactivated",
	})

	s.logger.Info("mailbox connector reactivated",
		zap.String("connector_id", id.String()),
	)
	return ToConnectorResponse(conn), nil
}

// ScheduleAllActive restores the polling jobs after a process restart
func (s *ConnectorService) ScheduleAllActive(ctx context.Context) error {
	conns, err := s.connectorRepo.FindAllActive(ctx)
	if err != nil {
		return err
	}
	for i := range conns {
		s.scheduler.Schedule(conns[i].ID, conns[i].PollInterval)
	}
	s.logger.Info("mailbox polling restored", zap.Int("connectors", len(conns)))
	return nil
}
