package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Customer is the resolved counterpart of an outgoing document.
// A non-empty tax id is unique per tenant; the partial composite index
// enforcing that is created by persistence.AutoMigrate.
type Customer struct {
	shared.TenantAggregateRoot
	Name           string               `gorm:"type:varchar(200);not null"`
	NormalizedName string               `gorm:"type:varchar(200);not null;index:idx_customer_name"`
	TaxID          string               `gorm:"type:varchar(50)"`
	Address        string               `gorm:"type:text"`
	Email          string               `gorm:"type:varchar(200)"`
	IBAN           string               `gorm:"type:varchar(50)"`
	Registry       RegistryVerification `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer with whatever fields the extraction yielded
func NewCustomer(tenantID uuid.UUID, name, taxID string) (*Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name is required")
	}
	return &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		NormalizedName:      NormalizeName(name),
		TaxID:               strings.TrimSpace(taxID),
	}, nil
}

// SetContact fills in optional contact fields, leaving blanks untouched
func (c *Customer) SetContact(address, email, iban string) {
	if address != "" {
		c.Address = address
	}
	if email != "" {
		c.Email = strings.ToLower(email)
	}
	if iban != "" {
		c.IBAN = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// RefreshRegistry records a fresh registry-verification result
func (c *Customer) RefreshRegistry(verification RegistryVerification) {
	c.Registry = verification
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
