package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeDuplicateContent is used when identical bytes were already ingested
	ErrCodeDuplicateContent = "ERR_DUPLICATE_CONTENT"
	// ErrCodeConcurrencyConflict is used when another run holds a lock
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeConnectorInactive is used when a deactivated connector is synced
	ErrCodeConnectorInactive = "ERR_CONNECTOR_INACTIVE"
	// ErrCodeUnresolvableCounterpart is used when neither tax id nor name is known
	ErrCodeUnresolvableCounterpart = "ERR_UNRESOLVABLE_COUNTERPART"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Dependency error codes
const (
	// ErrCodeVaultUnavailable is used when the secret vault is not configured
	ErrCodeVaultUnavailable = "ERR_VAULT_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeDuplicateContent:    http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:            http.StatusUnprocessableEntity,
	ErrCodeConnectorInactive:       http.StatusUnprocessableEntity,
	ErrCodeUnresolvableCounterpart: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeVaultUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized format
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"DUPLICATE_CONTENT":         ErrCodeDuplicateContent,
	"DUPLICATE_SEQUENCE":        ErrCodeConflict,
	"VAULT_UNAVAILABLE":         ErrCodeVaultUnavailable,
	"CONNECTOR_INACTIVE":        ErrCodeConnectorInactive,
	"UNRESOLVABLE_COUNTERPART":  ErrCodeUnresolvableCounterpart,
	"EMPTY_CONTENT":             ErrCodeBadRequest,
	"EMPTY_EXTRACTION":          ErrCodeInvalidInput,
	"INVALID_CORRECTION":        ErrCodeBadRequest,
	"DOCUMENT_NOT_DELETABLE":    ErrCodeInvalidState,
	"DOCUMENT_REPLACED":         ErrCodeInvalidState,
	"ALREADY_REPLACED":          ErrCodeInvalidState,
	"INVALID_STATUS_TRANSITION": ErrCodeInvalidState,
	"CONNECTOR_ACTIVE":          ErrCodeInvalidState,
	"INVALID_DIRECTION":         ErrCodeBadRequest,
	"INVALID_CHANNEL":           ErrCodeBadRequest,
	"INVALID_REASON":            ErrCodeBadRequest,
	"INVALID_NAME":              ErrCodeInvalidInput,
	"INVALID_HOST":              ErrCodeInvalidInput,
	"INVALID_PORT":              ErrCodeInvalidInput,
	"INVALID_USERNAME":          ErrCodeInvalidInput,
	"INVALID_CREDENTIALS":       ErrCodeInvalidInput,
	"VALIDATION_ERROR":          ErrCodeValidation,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
