package dto

import "net/http"

// API error codes returned in the response envelope
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"

	ErrCodeInvalidInput            = "INVALID_INPUT"
	ErrCodeInvalidState            = "INVALID_STATE"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeLineValidation          = "LINE_VALIDATION_FAILED"
	ErrCodeNoAddressOnFile         = "NO_ADDRESS_ON_FILE"
	ErrCodeDuplicateRequest        = "DUPLICATE_REQUEST"
	ErrCodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"

	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeInvalidToken = "INVALID_TOKEN"
)

// errorCodeHTTPStatus maps API error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInternal:     http.StatusInternalServerError,

	ErrCodeInvalidInput:            http.StatusBadRequest,
	ErrCodeInvalidState:            http.StatusConflict,
	ErrCodeInsufficientStock:       http.StatusUnprocessableEntity,
	ErrCodeLineValidation:          http.StatusUnprocessableEntity,
	ErrCodeNoAddressOnFile:         http.StatusUnprocessableEntity,
	ErrCodeDuplicateRequest:        http.StatusConflict,
	ErrCodeCollaboratorUnavailable: http.StatusServiceUnavailable,

	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeInvalidToken: http.StatusUnauthorized,
}

// GetHTTPStatus returns the HTTP status for an API error code,
// defaulting to 500 for unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping translates domain error codes to API error codes
var domainCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"FORBIDDEN":                ErrCodeForbidden,
	"UNAUTHORIZED":             ErrCodeUnauthorized,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"INVALID_STATE":            ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":       ErrCodeInsufficientStock,
	"NO_ADDRESS_ON_FILE":       ErrCodeNoAddressOnFile,
	"DUPLICATE_REQUEST":        ErrCodeDuplicateRequest,
	"COLLABORATOR_UNAVAILABLE": ErrCodeCollaboratorUnavailable,
	"NO_ITEMS":                 ErrCodeInvalidInput,
	"INVALID_DISCOUNT":         ErrCodeInvalidInput,
	"CONFLICT":                 ErrCodeConflict,
}

// NormalizeErrorCode maps a domain error code to its API error code.
// Unknown codes pass through unchanged so GetHTTPStatus falls back to 500.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainCodeMapping[code]; ok {
		return mapped
	}
	return code
}
