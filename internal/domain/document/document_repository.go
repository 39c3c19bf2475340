package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/shared"
)

// ErrDuplicateSequence is returned by CreateWithSequence when a concurrent
// writer won the race for the same sequential number. Callers retry with a
// freshly read maximum.
var ErrDuplicateSequence = shared.NewDomainError("DUPLICATE_SEQUENCE", "Sequential number already taken")

// DocumentRepository defines the persistence interface for documents
type DocumentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)
	FindByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*Document, error)
	// FindByEmailKey looks up the document ingested for a given
	// (message id, attachment filename) pair within a tenant.
	FindByEmailKey(ctx context.Context, tenantID uuid.UUID, messageID, filename string) (*Document, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Document, int64, error)
	// FindValidated returns documents eligible for re-validation,
	// i.e. those that already carry at least one extracted version.
	FindValidated(ctx context.Context, tenantID uuid.UUID) ([]Document, error)
	// MaxSequenceNo returns the highest assigned sequential number for a
	// tenant, zero when no document exists yet.
	MaxSequenceNo(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// CreateWithSequence inserts the document with the given sequential
	// number. The tenant+sequence unique constraint is the final arbiter
	// under concurrent writers; losing the race yields ErrDuplicateSequence,
	// a concurrent identical-content insert yields shared.ErrDuplicateContent.
	CreateWithSequence(ctx context.Context, doc *Document, sequenceNo int64) error
	Save(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// VersionRepository defines the persistence interface for extracted versions
type VersionRepository interface {
	Append(ctx context.Context, version *ExtractedVersion) error
	LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*ExtractedVersion, error)
	FindByJobKey(ctx context.Context, tenantID uuid.UUID, jobKey string) (*ExtractedVersion, error)
	ListForDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]ExtractedVersion, error)
}

// ValidationRepository persists validation results. SaveResultAndSyncDocument
// writes the result and the document's severity/status/latest-version fields in
// one transaction so a reader never observes them out of step.
type ValidationRepository interface {
	SaveResultAndSyncDocument(ctx context.Context, result *ValidationResult, doc *Document) error
	LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*ValidationResult, error)
}
