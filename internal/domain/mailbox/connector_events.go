package mailbox

import (
	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Aggregate type constant for Connector
const AggregateTypeConnector = "EmailConnector"

// Event type constants for Connector
const (
	EventTypeConnectorCreated     = "ConnectorCreated"
	EventTypeConnectorDeactivated = "ConnectorDeactivated"
	EventTypeConnectorReactivated = "ConnectorReactivated"
)

// ConnectorCreatedEvent is published when a connector is created
type ConnectorCreatedEvent struct {
	shared.BaseDomainEvent
	ConnectorID uuid.UUID `json:"connector_id"`
	Host        string    `json:"host"`
	Username    string    `json:"username"`
}

// NewConnectorCreatedEvent creates a new ConnectorCreatedEvent
func NewConnectorCreatedEvent(c *Connector) *ConnectorCreatedEvent {
	return &ConnectorCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorCreated, AggregateTypeConnector, c.ID, c.TenantID),
		ConnectorID:     c.ID,
		Host:            c.Host,
		Username:        c.Username,
	}
}

// ConnectorDeactivatedEvent is published when repeated failures flip a
// connector inactive
type ConnectorDeactivatedEvent struct {
	shared.BaseDomainEvent
	ConnectorID uuid.UUID `json:"connector_id"`
	Failures    int       `json:"consecutive_failures"`
	LastError   string    `json:"last_error"`
}

// NewConnectorDeactivatedEvent creates a new ConnectorDeactivatedEvent
func NewConnectorDeactivatedEvent(c *Connector) *ConnectorDeactivatedEvent {
	return &ConnectorDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorDeactivated, AggregateTypeConnector, c.ID, c.TenantID),
		ConnectorID:     c.ID,
		Failures:        c.ConsecutiveFailures,
		LastError:       c.LastError,
	}
}

// ConnectorReactivatedEvent is published on manual reactivation
type ConnectorReactivatedEvent struct {
	shared.BaseDomainEvent
	ConnectorID uuid.UUID `json:"connector_id"`
}

// NewConnectorReactivatedEvent creates a new ConnectorReactivatedEvent
func NewConnectorReactivatedEvent(c *Connector) *ConnectorReactivatedEvent {
	return &ConnectorReactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectorReactivated, AggregateTypeConnector, c.ID, c.TenantID),
		ConnectorID:     c.ID,
	}
}
