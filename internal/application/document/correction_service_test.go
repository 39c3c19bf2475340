package document

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type correctionFixture struct {
	svc         *CorrectionService
	docRepo     *MockDocumentRepository
	versionRepo *MockVersionRepository
	resultRepo  *MockValidationRepository
	evaluator   *MockRuleEvaluator
	audit       *MockAuditSink
}

func newCorrectionFixture() *correctionFixture {
	f := &correctionFixture{
		docRepo:     new(MockDocumentRepository),
		versionRepo: new(MockVersionRepository),
		resultRepo:  new(MockValidationRepository),
		evaluator:   new(MockRuleEvaluator),
		audit:       &MockAuditSink{},
	}
	validation := NewValidationService(f.docRepo, f.versionRepo, f.resultRepo, f.evaluator, zap.NewNop())
	f.svc = NewCorrectionService(f.docRepo, f.versionRepo, validation, f.audit, zap.NewNop())
	return f
}

func strPtr(s string) *string { return &s }

func dec(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}

func TestCorrectionService_ApplyCorrection(t *testing.T) {
	ctx := context.Background()

	t.Run("appends a manual version with untouched fields carried over", func(t *testing.T) {
		f := newCorrectionFixture()
		tenantID := uuid.New()
		actorID := uuid.New()
		doc := processedDocument(t, tenantID)

		latest := &document.ExtractedVersion{
			VersionNo: 1,
			Source:    document.VersionSourceAutomated,
			Fields: document.ExtractedFields{
				CounterpartName: "ACME GmbH",
				InvoiceNumber:   "R-1001",
				NetAmount:       dec(t, "100.00"),
				VatAmount:       dec(t, "19.00"),
				GrossAmount:     dec(t, "119.00"),
				Currency:        "EUR",
			},
		}

		f.docRepo.On("FindByIDForTenant", ctx, tenantID, doc.ID).Return(doc, nil)
		f.versionRepo.On("LatestForDocument", ctx, tenantID, doc.ID).Return(latest, nil)

		var appended *document.ExtractedVersion
		f.versionRepo.On("Append", ctx, mock.Anything).Run(func(args mock.Arguments) {
			appended = args.Get(1).(*document.ExtractedVersion)
		}).Return(nil)
		f.evaluator.On("Evaluate", ctx, mock.Anything, document.DirectionIncoming).Return([]document.Check{
			{RuleID: "amounts-consistent", Severity: document.SeverityValid},
		}, nil)
		f.resultRepo.On("SaveResultAndSyncDocument", ctx, mock.Anything, doc).Return(nil)

		resp, err := f.svc.ApplyCorrection(ctx, tenantID, doc.ID, actorID, document.FieldPatch{
			InvoiceNumber: strPtr("R-1001-A"),
		}, "typo in invoice number")
		require.NoError(t, err)

		assert.Equal(t, 2, resp.VersionNo)
		assert.Equal(t, document.VersionSourceManual, resp.Source)
		assert.Equal(t, "R-1001-A", resp.Fields.InvoiceNumber)
		assert.Equal(t, "ACME GmbH", resp.Fields.CounterpartName)
		assert.True(t, resp.Fields.NetAmount.Equal(decimal.RequireFromString("100.00")))
		require.NotNil(t, resp.EditorID)
		assert.Equal(t, actorID, *resp.EditorID)
		assert.Equal(t, "typo in invoice number", resp.Reason)

		require.NotNil(t, appended)
		assert.Equal(t, 2, appended.VersionNo)

		require.Len(t, f.audit.Entries, 1)
		assert.Equal(t, "document.corrected", f.audit.Entries[0].Action)
	})

	t.Run("gross override does not recompute net and vat", func(t *testing.T) {
		f := newCorrectionFixture()
		tenantID := uuid.New()
		doc := processedDocument(t, tenantID)

		latest := &document.ExtractedVersion{
			VersionNo: 3,
			Fields: document.ExtractedFields{
				NetAmount:   dec(t, "100.00"),
				VatAmount:   dec(t, "19.00"),
				GrossAmount: dec(t, "119.00"),
			},
		}

		f.docRepo.On("FindByIDForTenant", ctx, tenantID, doc.ID).Return(doc, nil)
		f.versionRepo.On("LatestForDocument", ctx, tenantID, doc.ID).Return(latest, nil)
		f.versionRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.evaluator.On("Evaluate", ctx, mock.Anything, document.DirectionIncoming).Return([]document.Check{
			{RuleID: "amounts-consistent", Severity: document.SeverityWarning, Message: "net + vat does not equal gross"},
		}, nil)
		f.resultRepo.On("SaveResultAndSyncDocument", ctx, mock.Anything, doc).Return(nil)

		resp, err := f.svc.ApplyCorrection(ctx, tenantID, doc.ID, uuid.New(), document.FieldPatch{
			GrossAmount: dec(t, "120.00"),
		}, "gross per paper original")
		require.NoError(t, err)

		// The editor's value wins verbatim; inconsistency is validation's job.
		assert.True(t, resp.Fields.GrossAmount.Equal(decimal.RequireFromString("120.00")))
		assert.True(t, resp.Fields.NetAmount.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, resp.Fields.VatAmount.Equal(decimal.RequireFromString("19.00")))
		assert.Equal(t, document.StatusReviewRequired, doc.Status)
	})

	t.Run("empty reason is rejected", func(t *testing.T) {
		f := newCorrectionFixture()
		tenantID := uuid.New()
		doc := processedDocument(t, tenantID)

		f.docRepo.On("FindByIDForTenant", ctx, tenantID, doc.ID).Return(doc, nil)
		f.versionRepo.On("LatestForDocument", ctx, tenantID, doc.ID).Return(&document.ExtractedVersion{VersionNo: 1}, nil)

		_, err := f.svc.ApplyCorrection(ctx, tenantID, doc.ID, uuid.New(), document.FieldPatch{}, "")
		require.Error(t, err)
		f.versionRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("replaced documents cannot be corrected", func(t *testing.T) {
		f := newCorrectionFixture()
		tenantID := uuid.New()
		doc := processedDocument(t, tenantID)
		require.NoError(t, doc.MarkReplaced(uuid.New()))

		f.docRepo.On("FindByIDForTenant", ctx, tenantID, doc.ID).Return(doc, nil)

		_, err := f.svc.ApplyCorrection(ctx, tenantID, doc.ID, uuid.New(), document.FieldPatch{}, "late fix")
		require.Error(t, err)
		f.versionRepo.AssertNotCalled(t, "LatestForDocument", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCorrectionService_ListVersions(t *testing.T) {
	ctx := context.Background()
	f := newCorrectionFixture()
	tenantID := uuid.New()
	docID := uuid.New()

	f.versionRepo.On("ListForDocument", ctx, tenantID, docID).Return([]document.ExtractedVersion{
		{VersionNo: 1, Source: document.VersionSourceAutomated},
		{VersionNo: 2, Source: document.VersionSourceManual, Reason: "typo"},
	}, nil)

	out, err := f.svc.ListVersions(ctx, tenantID, docID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].VersionNo)
	assert.Equal(t, "typo", out[1].Reason)
}
