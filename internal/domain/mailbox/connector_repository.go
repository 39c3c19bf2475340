package mailbox

import (
	"context"

	"github.com/google/uuid"
)

// ConnectorRepository defines the persistence interface for email connectors
type ConnectorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Connector, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Connector, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Connector, error)
	FindAllActive(ctx context.Context) ([]Connector, error)
	Save(ctx context.Context, connector *Connector) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
