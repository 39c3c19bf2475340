package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// RegistryVerification holds the outcome of an external tax-id registry lookup
type RegistryVerification struct {
	Valid             *bool      `gorm:"column:registry_valid"`
	RegisteredName    string     `gorm:"type:varchar(200)"`
	RegisteredAddress string     `gorm:"type:text"`
	CheckedAt         *time.Time `gorm:"column:registry_checked_at"`
}

// Checked reports whether a registry lookup has ever been recorded
func (v RegistryVerification) Checked() bool {
	return v.CheckedAt != nil
}

// Vendor is the resolved counterpart of an incoming document.
// Identity is the tax id when known, otherwise the normalized name.
// A non-empty tax id is unique per tenant; the partial composite index
// enforcing that is created by persistence.AutoMigrate.
type Vendor struct {
	shared.TenantAggregateRoot
	Name           string               `gorm:"type:varchar(200);not null"`
	NormalizedName string               `gorm:"type:varchar(200);not null;index:idx_vendor_name"`
	TaxID          string               `gorm:"type:varchar(50)"`
	Address        string               `gorm:"type:text"`
	Email          string               `gorm:"type:varchar(200)"`
	IBAN           string               `gorm:"type:varchar(50)"`
	Registry       RegistryVerification `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Vendor) TableName() string {
	return "vendors"
}

// NewVendor creates a vendor with whatever fields the extraction yielded
func NewVendor(tenantID uuid.UUID, name, taxID string) (*Vendor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name is required")
	}
	return &Vendor{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		NormalizedName:      NormalizeName(name),
		TaxID:               strings.TrimSpace(taxID),
	}, nil
}

// SetContact fills in optional contact fields, leaving blanks untouched
func (v *Vendor) SetContact(address, email, iban string) {
	if address != "" {
		v.Address = address
	}
	if email != "" {
		v.Email = strings.ToLower(email)
	}
	if iban != "" {
		v.IBAN = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	}
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}

// RefreshRegistry records a fresh registry-verification result
func (v *Vendor) RefreshRegistry(verification RegistryVerification) {
	v.Registry = verification
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
}

// NormalizeName lowercases and collapses whitespace for the name-match fallback
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
