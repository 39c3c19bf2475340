package document

import (
	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// Severity is the traffic-light compliance outcome of a rule check
type Severity string

const (
	SeverityValid   Severity = "valid"
	SeverityWarning Severity = "warning"
	SeverityInvalid Severity = "invalid"
	SeverityPending Severity = "pending"
)

// severityRank orders severities for aggregation: invalid > warning > valid > pending
var severityRank = map[Severity]int{
	SeverityPending: 0,
	SeverityValid:   1,
	SeverityWarning: 2,
	SeverityInvalid: 3,
}

// WorseThan reports whether s outranks other in the aggregation ordering
func (s Severity) WorseThan(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// IsKnown reports whether s is one of the four defined levels
func (s Severity) IsKnown() bool {
	_, ok := severityRank[s]
	return ok
}

// Check is one evaluated compliance rule
type Check struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	LegalRef string   `json:"legal_ref,omitempty"`
}

// WorstSeverity aggregates a check list into one severity. An empty list is
// pending: nothing has been evaluated yet.
func WorstSeverity(checks []Check) Severity {
	worst := SeverityPending
	for _, c := range checks {
		if c.Severity.WorseThan(worst) {
			worst = c.Severity
		}
	}
	return worst
}

// ValidationResult ties an ordered check list to one extracted version
type ValidationResult struct {
	shared.TenantAggregateRoot
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index:idx_validation_doc"`
	VersionNo  int       `gorm:"not null"`
	Checks     []Check   `gorm:"type:jsonb;serializer:json"`
	Severity   Severity  `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (ValidationResult) TableName() string {
	return "validation_results"
}

// NewValidationResult creates a validation result for a document version
func NewValidationResult(tenantID, documentID uuid.UUID, versionNo int, checks []Check) *ValidationResult {
	return &ValidationResult{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentID:          documentID,
		VersionNo:           versionNo,
		Checks:              checks,
		Severity:            WorstSeverity(checks),
	}
}
