package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"go.uber.org/zap"
)

// ValidationOutcome is the result of validating one document version
type ValidationOutcome struct {
	Severity document.Severity `json:"severity"`
	Checks   []document.Check  `json:"checks"`
}

// BatchItemError records a per-document failure inside a batch operation
type BatchItemError struct {
	DocumentID uuid.UUID `json:"document_id"`
	Error      string    `json:"error"`
}

// BatchSummary reports a batch operation outcome: per-item failures are
// collected instead of aborting on the first error.
type BatchSummary struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    []BatchItemError `json:"failed,omitempty"`
}

// ValidationService runs compliance checks against extracted snapshots and
// keeps each document's status and severity in lockstep with the result.
type ValidationService struct {
	docRepo     document.DocumentRepository
	versionRepo document.VersionRepository
	resultRepo  document.ValidationRepository
	evaluator   RuleEvaluator
	logger      *zap.Logger
}

// NewValidationService creates a new ValidationService
func NewValidationService(
	docRepo document.DocumentRepository,
	versionRepo document.VersionRepository,
	resultRepo document.ValidationRepository,
	evaluator RuleEvaluator,
	logger *zap.Logger,
) *ValidationService {
	return &ValidationService{
		docRepo:     docRepo,
		versionRepo: versionRepo,
		resultRepo:  resultRepo,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// ValidateAndSync evaluates the rule catalogue against one extracted
// snapshot and persists the result together with the document's severity,
// latest-version pointer and status in a single atomic update.
func (s *ValidationService) ValidateAndSync(ctx context.Context, tenantID, documentID uuid.UUID, snapshot document.ExtractedFields, versionNo int, direction document.Direction) (*ValidationOutcome, error) {
	checks, err := s.evaluator.Evaluate(ctx, snapshot, direction)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules for document %s: %w", documentID, err)
	}

	result := document.NewValidationResult(tenantID, documentID, versionNo, checks)

	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	doc.Severity = result.Severity
	doc.LatestVersionNo = versionNo
	if doc.Status == document.StatusProcessed || doc.Status == document.StatusReviewRequired {
		// Re-validation of an already processed document may move it between
		// the two reviewed states; in-flight documents are finalized by the
		// extraction worker instead.
		if result.Severity == document.SeverityValid {
			doc.Status = document.StatusProcessed
		} else {
			doc.Status = document.StatusReviewRequired
		}
	}

	if err := s.resultRepo.SaveResultAndSyncDocument(ctx, result, doc); err != nil {
		return nil, fmt.Errorf("persist validation result for document %s: %w", documentID, err)
	}

	s.logger.Debug("document validated",
		zap.String("document_id", documentID.String()),
		zap.Int("version_no", versionNo),
		zap.String("severity", string(result.Severity)),
		zap.Int("checks", len(checks)),
	)

	return &ValidationOutcome{Severity: result.Severity, Checks: checks}, nil
}

// RevalidateAll re-runs validation for every eligible document of a tenant
// against its latest version. One document failing does not abort the batch.
func (s *ValidationService) RevalidateAll(ctx context.Context, tenantID uuid.UUID) (*BatchSummary, error) {
	docs, err := s.docRepo.FindValidated(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Total: len(docs)}
	for i := range docs {
		doc := &docs[i]
		if err := s.revalidateOne(ctx, tenantID, doc); err != nil {
			summary.Failed = append(summary.Failed, BatchItemError{DocumentID: doc.ID, Error: err.Error()})
			s.logger.Warn("re-validation failed for document",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err),
			)
			continue
		}
		summary.Succeeded++
	}
	return summary, nil
}

func (s *ValidationService) revalidateOne(ctx context.Context, tenantID uuid.UUID, doc *document.Document) error {
	latest, err := s.versionRepo.LatestForDocument(ctx, tenantID, doc.ID)
	if err != nil {
		return fmt.Errorf("load latest version: %w", err)
	}
	_, err = s.ValidateAndSync(ctx, tenantID, doc.ID, latest.Fields, latest.VersionNo, doc.Direction)
	return err
}

// LatestResult returns the most recent validation result for a document
func (s *ValidationService) LatestResult(ctx context.Context, tenantID, documentID uuid.UUID) (*ValidationOutcome, error) {
	result, err := s.resultRepo.LatestForDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	return &ValidationOutcome{Severity: result.Severity, Checks: result.Checks}, nil
}
