package shared

// DomainError is the error type returned by domain and application code. The
// Code survives wrapping and drives the HTTP status mapping at the interface
// layer; the Message is safe to show to API clients.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinels shared across aggregates. Aggregate-specific errors live next to
// their aggregate.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrDuplicateContent    = NewDomainError("DUPLICATE_CONTENT", "A document with identical content already exists")
	ErrVaultUnavailable    = NewDomainError("VAULT_UNAVAILABLE", "Secret vault is not configured")
	ErrConnectorInactive   = NewDomainError("CONNECTOR_INACTIVE", "Connector is deactivated and requires manual reactivation")
)
