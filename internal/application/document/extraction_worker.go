package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultExtractTimeout bounds one extraction collaborator call so a hung
// upstream cannot pin a worker forever.
const DefaultExtractTimeout = 2 * time.Minute

// ExtractionWorker consumes extraction jobs: download, extract, normalize,
// version, validate, resolve the counterpart, finalize the status.
type ExtractionWorker struct {
	docRepo        document.DocumentRepository
	versionRepo    document.VersionRepository
	storage        ObjectStorage
	extractor      Extractor
	validation     *ValidationService
	resolver       EntityResolver
	audit          AuditSink
	extractTimeout time.Duration
	logger         *zap.Logger
}

// NewExtractionWorker creates a new ExtractionWorker
func NewExtractionWorker(
	docRepo document.DocumentRepository,
	versionRepo document.VersionRepository,
	storage ObjectStorage,
	extractor Extractor,
	validation *ValidationService,
	resolver EntityResolver,
	audit AuditSink,
	logger *zap.Logger,
) *ExtractionWorker {
	return &ExtractionWorker{
		docRepo:        docRepo,
		versionRepo:    versionRepo,
		storage:        storage,
		extractor:      extractor,
		validation:     validation,
		resolver:       resolver,
		audit:          audit,
		extractTimeout: DefaultExtractTimeout,
		logger:         logger,
	}
}

// Process handles one extraction job. On failure the document is moved to
// ERROR with the failure message and the error is returned so the queue's
// own retry policy can act; the worker itself never crashes over one job.
func (w *ExtractionWorker) Process(ctx context.Context, job ExtractionJob) error {
	// Redelivery guard: the queue is at-least-once, so the same delivery
	// attempt may arrive twice. A version tagged with this job key already
	// exists means the work is done.
	if _, err := w.versionRepo.FindByJobKey(ctx, job.TenantID, job.JobKey()); err == nil {
		w.logger.Info("skipping redelivered extraction job",
			zap.String("document_id", job.DocumentID.String()),
			zap.Int("attempt", job.Attempt),
		)
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("redelivery check: %w", err)
	}

	doc, err := w.docRepo.FindByIDForTenant(ctx, job.TenantID, job.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", job.DocumentID, err)
	}

	if err := doc.StartProcessing(); err != nil {
		return err
	}
	if err := w.docRepo.Save(ctx, doc); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	if err := w.process(ctx, job, doc); err != nil {
		w.failDocument(ctx, doc, err)
		return err
	}
	return nil
}

func (w *ExtractionWorker) process(ctx context.Context, job ExtractionJob, doc *document.Document) error {
	data, err := w.storage.Get(ctx, job.StorageKey)
	if err != nil {
		return fmt.Errorf("download document bytes: %w", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, w.extractTimeout)
	defer cancel()
	raw, err := w.extractor.Extract(extractCtx, data, job.MimeType, job.Direction)
	if err != nil {
		return fmt.Errorf("extraction call: %w", err)
	}

	fields, err := NormalizeExtraction(raw)
	if err != nil {
		return fmt.Errorf("normalize extraction: %w", err)
	}

	latest, err := w.versionRepo.LatestForDocument(ctx, job.TenantID, doc.ID)
	versionNo := 1
	switch {
	case err == nil:
		versionNo = latest.VersionNo + 1
	case errors.Is(err, shared.ErrNotFound):
	default:
		return fmt.Errorf("determine version number: %w", err)
	}

	version := document.NewAutomatedVersion(
		job.TenantID, doc.ID, versionNo,
		fields, raw.Confidences, OverallConfidence(raw.Confidences),
		raw.StageTag, job.JobKey(),
	)
	if err := w.versionRepo.Append(ctx, version); err != nil {
		return fmt.Errorf("persist extracted version: %w", err)
	}

	outcome, err := w.validation.ValidateAndSync(ctx, job.TenantID, doc.ID, fields, versionNo, job.Direction)
	if err != nil {
		return err
	}

	// Entity resolution is best-effort: a registry hiccup must not block
	// the document from finishing.
	w.resolveCounterpart(ctx, doc, fields)

	if err := doc.FinishProcessing(outcome.Severity, versionNo); err != nil {
		return err
	}
	if err := w.docRepo.Save(ctx, doc); err != nil {
		return fmt.Errorf("finalize document status: %w", err)
	}

	w.audit.Append(ctx, AuditEntry{
		TenantID:   doc.TenantID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   doc.ID,
		Action:     "document.extracted",
		After: map[string]any{
			"version_no": versionNo,
			"severity":   outcome.Severity,
			"confidence": version.OverallConfidence,
		},
	})

	w.logger.Info("document extracted",
		zap.String("document_id", doc.ID.String()),
		zap.Int("version_no", versionNo),
		zap.String("severity", string(outcome.Severity)),
	)
	return nil
}

func (w *ExtractionWorker) resolveCounterpart(ctx context.Context, doc *document.Document, fields document.ExtractedFields) {
	if fields.CounterpartName == "" && fields.CounterpartTaxID == "" {
		return
	}

	resolve := w.resolver.ResolveVendor
	if doc.Direction == document.DirectionOutgoing {
		resolve = w.resolver.ResolveCustomer
	}

	id, err := resolve(ctx, doc.TenantID, fields)
	if err != nil {
		w.logger.Warn("counterpart resolution failed",
			zap.String("document_id", doc.ID.String()),
			zap.String("direction", string(doc.Direction)),
			zap.Error(err),
		)
		return
	}
	doc.SetCounterpart(id)
}

// failDocument records the failure on the document itself. Errors here are
// logged and swallowed: the original failure is what the caller needs to see.
func (w *ExtractionWorker) failDocument(ctx context.Context, doc *document.Document, cause error) {
	if err := doc.MarkError(cause.Error()); err != nil {
		w.logger.Error("cannot mark document as failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := w.docRepo.Save(ctx, doc); err != nil {
		w.logger.Error("cannot persist document error state",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}
	w.audit.Append(ctx, AuditEntry{
		TenantID:   doc.TenantID,
		EntityType: document.AggregateTypeDocument,
		EntityID:   doc.ID,
		Action:     "document.extraction_failed",
		After:      map[string]any{"error": cause.Error()},
	})
}
