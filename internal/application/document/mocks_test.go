package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of document.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*document.Document, error) {
	args := m.Called(ctx, tenantID, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByEmailKey(ctx context.Context, tenantID uuid.UUID, messageID, filename string) (*document.Document, error) {
	args := m.Called(ctx, tenantID, messageID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]document.Document, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]document.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) FindValidated(ctx context.Context, tenantID uuid.UUID) ([]document.Document, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockDocumentRepository) MaxSequenceNo(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) CreateWithSequence(ctx context.Context, doc *document.Document, sequenceNo int64) error {
	args := m.Called(ctx, doc, sequenceNo)
	if args.Error(0) == nil {
		doc.SequenceNo = sequenceNo
	}
	return args.Error(0)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockVersionRepository is a mock implementation of document.VersionRepository
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) Append(ctx context.Context, version *document.ExtractedVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockVersionRepository) LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*document.ExtractedVersion, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ExtractedVersion), args.Error(1)
}

func (m *MockVersionRepository) FindByJobKey(ctx context.Context, tenantID uuid.UUID, jobKey string) (*document.ExtractedVersion, error) {
	args := m.Called(ctx, tenantID, jobKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ExtractedVersion), args.Error(1)
}

func (m *MockVersionRepository) ListForDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]document.ExtractedVersion, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.ExtractedVersion), args.Error(1)
}

// MockValidationRepository is a mock implementation of document.ValidationRepository
type MockValidationRepository struct {
	mock.Mock
}

func (m *MockValidationRepository) SaveResultAndSyncDocument(ctx context.Context, result *document.ValidationResult, doc *document.Document) error {
	args := m.Called(ctx, result, doc)
	return args.Error(0)
}

func (m *MockValidationRepository) LatestForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*document.ValidationResult, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ValidationResult), args.Error(1)
}

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	args := m.Called(ctx, key, data, mimeType)
	return args.Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) PresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Error(1)
}

// MockJobQueue is a mock implementation of JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job ExtractionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockAuditSink records appended entries for assertions
type MockAuditSink struct {
	Entries []AuditEntry
}

func (m *MockAuditSink) Append(ctx context.Context, entry AuditEntry) {
	m.Entries = append(m.Entries, entry)
}

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, mimeType string, direction document.Direction) (*RawExtraction, error) {
	args := m.Called(ctx, data, mimeType, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RawExtraction), args.Error(1)
}

// MockRuleEvaluator is a mock implementation of RuleEvaluator
type MockRuleEvaluator struct {
	mock.Mock
}

func (m *MockRuleEvaluator) Evaluate(ctx context.Context, fields document.ExtractedFields, direction document.Direction) ([]document.Check, error) {
	args := m.Called(ctx, fields, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Check), args.Error(1)
}

// MockEntityResolver is a mock implementation of EntityResolver
type MockEntityResolver struct {
	mock.Mock
}

func (m *MockEntityResolver) ResolveVendor(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error) {
	args := m.Called(ctx, tenantID, fields)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockEntityResolver) ResolveCustomer(ctx context.Context, tenantID uuid.UUID, fields document.ExtractedFields) (uuid.UUID, error) {
	args := m.Called(ctx, tenantID, fields)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
