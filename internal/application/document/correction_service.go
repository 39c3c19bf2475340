package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// VersionResponse represents an extracted version in API responses
type VersionResponse struct {
	ID                uuid.UUID                `json:"id"`
	DocumentID        uuid.UUID                `json:"document_id"`
	VersionNo         int                      `json:"version_no"`
	Source            document.VersionSource   `json:"source"`
	Fields            document.ExtractedFields `json:"fields"`
	OverallConfidence float64                  `json:"overall_confidence"`
	EditorID          *uuid.UUID               `json:"editor_id,omitempty"`
	Reason            string                   `json:"reason,omitempty"`
}

// ToVersionResponse converts a version to its API representation
func ToVersionResponse(v *document.ExtractedVersion) *VersionResponse {
	return &VersionResponse{
		ID:                v.ID,
		DocumentID:        v.DocumentID,
		VersionNo:         v.VersionNo,
		Source:            v.Source,
		Fields:            v.Fields,
		OverallConfidence: v.OverallConfidence,
		EditorID:          v.EditorID,
		Reason:            v.Reason,
	}
}

// CorrectionService is the manual path into the version store. Corrections
// produce a new immutable version and run through the same validation code
// path as the automated pipeline.
type CorrectionService struct {
	docRepo     document.DocumentRepository
	versionRepo document.VersionRepository
	validation  *ValidationService
	audit       AuditSink
	logger      *zap.Logger
}

// NewCorrectionService creates a new CorrectionService
func NewCorrectionService(
	docRepo document.DocumentRepository,
	versionRepo document.VersionRepository,
	validation *ValidationService,
	audit AuditSink,
	logger *zap.Logger,
) *CorrectionService {
	return &CorrectionService{
		docRepo:     docRepo,
		versionRepo: versionRepo,
		validation:  validation,
		audit:       audit,
		logger:      logger,
	}
}

// ApplyCorrection overlays a partial field patch onto the latest version and
// appends it as version N+1 with editor and reason. Fields not present in
// the patch carry over unchanged; supplied amounts are taken verbatim and no
// dependent amount is recomputed from the prior rate.
func (s *CorrectionService) ApplyCorrection(ctx context.Context, tenantID, documentID, actorID uuid.UUID, patch document.FieldPatch, reason string) (*VersionResponse, error) {
	doc, err := s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == document.StatusReplaced {
		return nil, shared.NewDomainError("DOCUMENT_REPLACED", "Replaced documents cannot be corrected")
	}

	latest, err := s.versionRepo.LatestForDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("load latest version of document %s: %w", documentID, err)
	}

	next, err := document.NewManualVersion(
		tenantID, documentID, latest.VersionNo+1,
		latest.Fields.Overlay(patch),
		actorID, reason,
	)
	if err != nil {
		return nil, err
	}

	if err := s.versionRepo.Append(ctx, next); err != nil {
		return nil, fmt.Errorf("persist correction version: %w", err)
	}

	if _, err := s.validation.ValidateAndSync(ctx, tenantID, documentID, next.Fields, next.VersionNo, doc.Direction); err != nil {
		return nil, err
	}

	s.audit.Append(ctx, AuditEntry{
		TenantID:   tenantID,
		ActorID:    &actorID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   documentID,
		Action:     "document.corrected",
		Before:     map[string]any{"version_no": latest.VersionNo},
		After:      map[string]any{"version_no": next.VersionNo, "reason": reason},
	})

	s.logger.Info("manual correction applied",
		zap.String("document_id", documentID.String()),
		zap.Int("version_no", next.VersionNo),
		zap.String("editor_id", actorID.String()),
	)

	return ToVersionResponse(next), nil
}

// ListVersions returns all versions of a document, oldest first
func (s *CorrectionService) ListVersions(ctx context.Context, tenantID, documentID uuid.UUID) ([]VersionResponse, error) {
	versions, err := s.versionRepo.ListForDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]VersionResponse, 0, len(versions))
	for i := range versions {
		out = append(out, *ToVersionResponse(&versions[i]))
	}
	return out, nil
}
