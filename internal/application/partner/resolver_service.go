package partner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/partner"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RegistryClient verifies a tax id against an external business registry
type RegistryClient interface {
	Verify(ctx context.Context, taxID string) (partner.RegistryVerification, error)
}

// RegistryRefreshAfter is how stale a stored verification may get before a
// resolution triggers a fresh lookup.
const RegistryRefreshAfter = 30 * 24 * time.Hour

// ResolverService maps extracted counterpart fields onto vendor and customer
// records. Matching is tax id first, normalized name second, and creates a
// new record when neither matches. Registry verification is opportunistic:
// a failing lookup never fails the resolution.
type ResolverService struct {
	vendorRepo   partner.VendorRepository
	customerRepo partner.CustomerRepository
	registry     RegistryClient
	logger       *zap.Logger
}

// NewResolverService creates a new ResolverService
func NewResolverService(
	vendorRepo partner.VendorRepository,
	customerRepo partner.CustomerRepository,
	registry RegistryClient,
	logger *zap.Logger,
) *ResolverService {
	return &ResolverService{
		vendorRepo:   vendorRepo,
		customerRepo: customerRepo,
		registry:     registry,
		logger:       logger,
	}
}

// ResolveVendor resolves the counterpart of an incoming document
func (s *ResolverService) ResolveVendor(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error) {
	taxID := strings.TrimSpace(fields.CounterpartTaxID)
	name := strings.TrimSpace(fields.CounterpartName)

	if taxID != "" {
		vendor, err := s.vendorRepo.FindByTaxID(ctx, tenantID, taxID)
		switch {
		case err == nil:
			s.maybeRefreshVendorRegistry(ctx, vendor)
			return vendor.ID, nil
		case !errors.Is(err, shared.ErrNotFound):
			return uuid.Nil, err
		}
	}

	if name != "" {
		vendor, err := s.vendorRepo.FindByNormalizedName(ctx, tenantID, partner.NormalizeName(name))
		switch {
		case err == nil:
			if taxID != "" {
				// The extraction supplied a tax id the stored record lacks;
				// adopt it and verify.
				vendor.TaxID = taxID
				s.maybeRefreshVendorRegistry(ctx, vendor)
				if err := s.vendorRepo.Save(ctx, vendor); err != nil {
					return uuid.Nil, err
				}
			}
			return vendor.ID, nil
		case !errors.Is(err, shared.ErrNotFound):
			return uuid.Nil, err
		}
	}

	if name == "" {
		return uuid.Nil, shared.NewDomainError("UNRESOLVABLE_COUNTERPART", "Neither name nor tax id extracted")
	}

	vendor, err := partner.NewVendor(tenantID, name, taxID)
	if err != nil {
		return uuid.Nil, err
	}
	vendor.SetContact(fields.CounterpartAddress, fields.CounterpartEmail, fields.CounterpartIBAN)
	s.maybeRefreshVendorRegistry(ctx, vendor)
	if err := s.vendorRepo.Save(ctx, vendor); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("vendor created from extraction",
		zap.String("tenant_id", tenantID.String()),
		zap.String("vendor_id", vendor.ID.String()),
		zap.Bool("has_tax_id", taxID != ""),
	)
	return vendor.ID, nil
}

// ResolveCustomer resolves the counterpart of an outgoing document
func (s *ResolverService) ResolveCustomer(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error) {
	taxID := strings.TrimSpace(fields.CounterpartTaxID)
	name := strings.TrimSpace(fields.CounterpartName)

	if taxID != "" {
		customer, err := s.customerRepo.FindByTaxID(ctx, tenantID, taxID)
		switch {
		case err == nil:
			s.maybeRefreshCustomerRegistry(ctx, customer)
			return customer.ID, nil
		case !errors.Is(err, shared.ErrNotFound):
			return uuid.Nil, err
		}
	}

	if name != "" {
		customer, err := s.customerRepo.FindByNormalizedName(ctx, tenantID, partner.NormalizeName(name))
		switch {
		case err == nil:
			if taxID != "" {
				customer.TaxID = taxID
				s.maybeRefreshCustomerRegistry(ctx, customer)
				if err := s.customerRepo.Save(ctx, customer); err != nil {
					return uuid.Nil, err
				}
			}
			return customer.ID, nil
		case !errors.Is(err, shared.ErrNotFound):
			return uuid.Nil, err
		}
	}

	if name == "" {
		return uuid.Nil, shared.NewDomainError("UNRESOLVABLE_COUNTERPART", "Neither name nor tax id extracted")
	}

	customer, err := partner.NewCustomer(tenantID, name, taxID)
	if err != nil {
		return uuid.Nil, err
	}
	customer.SetContact(fields.CounterpartAddress, fields.CounterpartEmail, fields.CounterpartIBAN)
	s.maybeRefreshCustomerRegistry(ctx, customer)
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("customer created from extraction",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customer.ID.String()),
	)
	return customer.ID, nil
}

func (s *ResolverService) maybeRefreshVendorRegistry(ctx context.Context, vendor *partner.Vendor) {
	if !s.registryDue(vendor.TaxID, vendor.Registry) {
		return
	}
	verification, err := s.registry.Verify(ctx, vendor.TaxID)
	if err != nil {
		s.logger.Warn("registry lookup failed",
			zap.String("tax_id", vendor.TaxID),
			zap.Error(err),
		)
		return
	}
	vendor.RefreshRegistry(verification)
}

func (s *ResolverService) maybeRefreshCustomerRegistry(ctx context.Context, customer *partner.Customer) {
	if !s.registryDue(customer.TaxID, customer.Registry) {
		return
	}
	verification, err := s.registry.Verify(ctx, customer.TaxID)
	if err != nil {
		s.logger.Warn("registry lookup failed",
			zap.String("tax_id", customer.TaxID),
			zap.Error(err),
		)
		return
	}
	customer.RefreshRegistry(verification)
}

func (s *ResolverService) registryDue(taxID string, verification partner.RegistryVerification) bool {
	if s.registry == nil || taxID == "" {
		return false
	}
	if !verification.Checked() {
		return true
	}
	return time.Since(*verification.CheckedAt) > RegistryRefreshAfter
}
