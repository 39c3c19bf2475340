package mailbox

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// ConnectorStatus represents the poll-run state of a connector
type ConnectorStatus string

const (
	ConnectorStatusIdle     ConnectorStatus = "IDLE"
	ConnectorStatusRunning  ConnectorStatus = "RUNNING"
	ConnectorStatusSuccess  ConnectorStatus = "SUCCESS"
	ConnectorStatusError    ConnectorStatus = "ERROR"
	ConnectorStatusInactive ConnectorStatus = "INACTIVE"
)

// DefaultFailureThreshold deactivates a connector after this many
// consecutive whole-run failures
const DefaultFailureThreshold = 5

// DefaultAllowedMimeTypes lists the attachment types accepted for ingestion
var DefaultAllowedMimeTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/tiff",
}

// Connector is a per-tenant mailbox subscription. It owns its own polling
// cursor and health state and deactivates itself after repeated failures
// rather than retrying a broken mailbox forever.
type Connector struct {
	shared.TenantAggregateRoot
	Name              string          `gorm:"type:varchar(100);not null"`
	Host              string          `gorm:"type:varchar(200);not null"`
	Port              int             `gorm:"not null;default:993"`
	Username          string          `gorm:"type:varchar(200);not null"`
	EncryptedPassword string          `gorm:"type:text;not null"`
	Folder            string          `gorm:"type:varchar(100);not null;default:'INBOX'"`
	PollInterval      time.Duration   `gorm:"not null;default:300000000000"`
	AllowedMimeTypes  []string        `gorm:"type:jsonb;serializer:json"`
	Cursor            string          `gorm:"type:varchar(200)"`
	Status            ConnectorStatus `gorm:"type:varchar(10);not null;default:'IDLE'"`
	ConsecutiveFailures int           `gorm:"not null;default:0"`
	FailureThreshold  int             `gorm:"not null;default:5"`
	// No column default: gorm would substitute it for false on insert,
	// resurrecting a connector that was deactivated before first save.
	IsActive          bool            `gorm:"not null"`
	LastError         string          `gorm:"type:text"`
	LastSyncAt        *time.Time
}

// TableName returns the table name for GORM
func (Connector) TableName() string {
	return "email_connectors"
}

// NewConnector creates an active connector. The password must already be
// encrypted by the secret vault; plaintext never reaches the aggregate.
func NewConnector(tenantID uuid.UUID, name, host string, port int, username, encryptedPassword, folder string, pollInterval time.Duration) (*Connector, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Connector name is required")
	}
	if strings.TrimSpace(host) == "" {
		return nil, shared.NewDomainError("INVALID_HOST", "Mailbox host is required")
	}
	if port <= 0 || port > 65535 {
		return nil, shared.NewDomainError("INVALID_PORT", "Mailbox port is out of range")
	}
	if strings.TrimSpace(username) == "" {
		return nil, shared.NewDomainError("INVALID_USERNAME", "Mailbox username is required")
	}
	if encryptedPassword == "" {
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Encrypted password is required")
	}
	if folder == "" {
		folder = "INBOX"
	}
	if pollInterval < time.Minute {
		pollInterval = 5 * time.Minute
	}

	conn := &Connector{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Host:                host,
		Port:                port,
		Username:            username,
		EncryptedPassword:   encryptedPassword,
		Folder:              folder,
		PollInterval:        pollInterval,
		AllowedMimeTypes:    DefaultAllowedMimeTypes,
		Status:              ConnectorStatusIdle,
		FailureThreshold:    DefaultFailureThreshold,
		IsActive:            true,
	}

	conn.AddDomainEvent(NewConnectorCreatedEvent(conn))

	return conn, nil
}

// BeginRun transitions the connector into RUNNING. Inactive connectors
// refuse to run until manually reactivated; a run already in flight is a
// concurrency conflict.
func (c *Connector) BeginRun() error {
	if !c.IsActive {
		return shared.ErrConnectorInactive
	}
	if c.Status == ConnectorStatusRunning {
		return shared.ErrConcurrencyConflict
	}
	c.Status = ConnectorStatusRunning
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// CompleteRun records a successful poll: cursor advanced, failures reset
func (c *Connector) CompleteRun(cursor string) {
	now := time.Now()
	if cursor != "" {
		c.Cursor = cursor
	}
	c.Status = ConnectorStatusSuccess
	c.ConsecutiveFailures = 0
	c.LastError = ""
	c.LastSyncAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()
}

// FailRun records a whole-run failure. Reaching the failure threshold flips
// the connector inactive, which also removes its scheduled job upstream.
// Returns true when this failure caused the deactivation.
func (c *Connector) FailRun(message string) bool {
	c.Status = ConnectorStatusError
	c.ConsecutiveFailures++
	c.LastError = message
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	if c.ConsecutiveFailures >= c.FailureThreshold {
		c.IsActive = false
		c.Status = ConnectorStatusInactive
		c.AddDomainEvent(NewConnectorDeactivatedEvent(c))
		return true
	}
	return false
}

// Reactivate re-enables a deactivated connector and clears its health state
func (c *Connector) Reactivate() error {
	if c.IsActive {
		return shared.NewDomainError("CONNECTOR_ACTIVE", "Connector is already active")
	}
	c.IsActive = true
	c.Status = ConnectorStatusIdle
	c.ConsecutiveFailures = 0
	c.LastError = ""
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	c.AddDomainEvent(NewConnectorReactivatedEvent(c))
	return nil
}

// UpdateCredentials replaces the mailbox login. The password must already be
// vault-encrypted.
func (c *Connector) UpdateCredentials(username, encryptedPassword string) error {
	if strings.TrimSpace(username) == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Mailbox username is required")
	}
	if encryptedPassword == "" {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Encrypted password is required")
	}
	c.Username = username
	c.EncryptedPassword = encryptedPassword
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// AllowsMimeType reports whether an attachment content type is accepted
func (c *Connector) AllowsMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	allowed := c.AllowedMimeTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedMimeTypes
	}
	for _, m := range allowed {
		if m == mimeType {
			return true
		}
	}
	return false
}
