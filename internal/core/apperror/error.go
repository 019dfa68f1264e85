// Package apperror provides the structured error type shared by the ledger,
// the posting engine and the HTTP layer.
// Every money-affecting failure is returned as an AppError; none are logged and dropped.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation family (400)
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeUnbalancedVoucher     = "UNBALANCED_VOUCHER"
	CodeMissingAccountMapping = "MISSING_ACCOUNT_MAPPING"
	CodeMissingLinkedAccount  = "MISSING_LINKED_ACCOUNT"
	CodeInactiveAccount       = "INACTIVE_ACCOUNT"
	CodeQuantityExceeded      = "QUANTITY_EXCEEDED"

	// Business rule violations (422)
	CodeBusinessRule      = "BUSINESS_RULE"
	CodeSequenceExhausted = "SEQUENCE_EXHAUSTED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeAlreadyReversed        = "ALREADY_REVERSED"
	CodeAlreadyVoid            = "ALREADY_VOID"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

var validationCodes = map[string]struct{}{
	CodeValidation:            {},
	CodeInvalidInput:          {},
	CodeUnbalancedVoucher:     {},
	CodeMissingAccountMapping: {},
	CodeMissingLinkedAccount:  {},
	CodeInactiveAccount:       {},
	CodeQuantityExceeded:      {},
}

// AppError is the standard error type of the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details carries the actionable context (expected vs actual totals, missing mapping, ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a generic validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidInput reports a malformed request field.
func NewInvalidInput(field, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// NewUnbalancedVoucher reports debit and credit totals that differ by more than the tolerance.
// Totals are passed pre-formatted so the kernel stays free of the money type.
func NewUnbalancedVoucher(totalDebit, totalCredit, difference string) *AppError {
	return &AppError{
		Code:       CodeUnbalancedVoucher,
		Message:    fmt.Sprintf("voucher is not balanced: debit %s, credit %s", totalDebit, totalCredit),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"total_debit":  totalDebit,
			"total_credit": totalCredit,
			"difference":   difference,
		},
	}
}

// NewMissingAccountMapping reports a product category without a complete account mapping.
func NewMissingAccountMapping(categoryID any, missing []string) *AppError {
	return &AppError{
		Code:       CodeMissingAccountMapping,
		Message:    fmt.Sprintf("category %v has no account mapping for %v", categoryID, missing),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"category_id": categoryID, "missing": missing},
	}
}

// NewMissingLinkedAccount reports a customer or supplier without a receivable/payable account.
func NewMissingLinkedAccount(partyKind string, partyID any) *AppError {
	return &AppError{
		Code:       CodeMissingLinkedAccount,
		Message:    fmt.Sprintf("%s %v has no linked account", partyKind, partyID),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"party_kind": partyKind, "party_id": partyID},
	}
}

// NewInactiveAccount reports a posting to a deactivated account.
func NewInactiveAccount(accountID any, code string) *AppError {
	return &AppError{
		Code:       CodeInactiveAccount,
		Message:    fmt.Sprintf("account %s is inactive", code),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"account_id": accountID, "account_code": code},
	}
}

// NewQuantityExceeded reports a return larger than what is left on the original line.
func NewQuantityExceeded(lineID any, requested, available string) *AppError {
	return &AppError{
		Code:       CodeQuantityExceeded,
		Message:    fmt.Sprintf("requested quantity %s exceeds available %s", requested, available),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"line_id":   lineID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewSequenceExhausted is returned when a prefix/day runs past the 4-digit suffix.
func NewSequenceExhausted(key string, max int) *AppError {
	return &AppError{
		Code:       CodeSequenceExhausted,
		Message:    fmt.Sprintf("sequence %s exhausted (max %d)", key, max),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"key": key, "max": max},
	}
}

// NewAlreadyReversed guards against a second reversal of the same voucher.
func NewAlreadyReversed(voucherID any, number string) *AppError {
	return &AppError{
		Code:       CodeAlreadyReversed,
		Message:    fmt.Sprintf("voucher %s is already reversed", number),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"voucher_id": voucherID, "voucher_number": number},
	}
}

// NewAlreadyVoid guards against voiding a transaction twice.
func NewAlreadyVoid(transactionID any, number string) *AppError {
	return &AppError{
		Code:       CodeAlreadyVoid,
		Message:    fmt.Sprintf("%s is already void", number),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"transaction_id": transactionID, "number": number},
	}
}

// NewConcurrentModification is returned when a write lost a race; callers retry with fresh data.
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently. Reload and retry.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps a storage failure.
func NewDatabase(op string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("database error during %s", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request body.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsValidation is true for every validation-family code.
func IsValidation(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		_, ok := validationCodes[appErr.Code]
		return ok
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsAlreadyReversed checks if error is CodeAlreadyReversed
func IsAlreadyReversed(err error) bool { return HasCode(err, CodeAlreadyReversed) }

// IsAlreadyVoid checks if error is CodeAlreadyVoid
func IsAlreadyVoid(err error) bool { return HasCode(err, CodeAlreadyVoid) }

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
