package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller may see a resource but not act on it.
var ErrForbidden = errors.New("operation not permitted")

// ErrInternal is returned when an unexpected failure should not leak details to the caller.
var ErrInternal = errors.New("internal error")

// Ledger errors. Each one is terminal for the request that produced it: nothing was committed.
var (
	ErrAccountNotFound   = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrAccountInactive   = errors.New("account is not active")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCurrencyMismatch  = fmt.Errorf("%w: currency does not match account currency", ErrValidation)
	ErrSameAccount       = fmt.Errorf("%w: source and destination accounts must differ", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive with at most two decimal places", ErrValidation)
	ErrTransferNotFound  = fmt.Errorf("%w: transfer not found", ErrNotFound)
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Loan errors.
var (
	ErrLoanNotFound    = fmt.Errorf("%w: loan not found", ErrNotFound)
	ErrLoanNotActive   = errors.New("loan is not active")
	ErrLoanOverpayment = fmt.Errorf("%w: payment exceeds outstanding loan balance", ErrValidation)
)

// Idempotency and concurrency errors.
var (
	// ErrIdempotencyKeyConflict means the key was already used with a different request body.
	ErrIdempotencyKeyConflict = errors.New("idempotency key reused with a different request")
	// ErrConcurrencyConflict is safe to retry from the top with the same idempotency key.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)

// External settlement errors.
var (
	ErrExternalGatewayTimeout = errors.New("external settlement gateway timed out")
	ErrExternalGatewayFailure = errors.New("external settlement gateway failure")
)

// Stable error codes exposed to API clients.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive        = "ACCOUNT_INACTIVE"
	CodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	CodeLoanNotFound           = "LOAN_NOT_FOUND"
	CodeLoanNotActive          = "LOAN_NOT_ACTIVE"
	CodeLoanOverpayment        = "LOAN_OVERPAYMENT"
	CodeIdempotencyKeyConflict = "IDEMPOTENCY_KEY_CONFLICT"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeGatewayTimeout         = "EXTERNAL_GATEWAY_TIMEOUT"
	CodeGatewayFailure         = "EXTERNAL_GATEWAY_FAILURE"
	CodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	CodeDuplicate              = "DUPLICATE"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL_ERROR"
)

// codeTable is ordered from most to least specific so wrapped sentinels resolve correctly.
var codeTable = []struct {
	err  error
	code string
}{
	{ErrAccountNotFound, CodeAccountNotFound},
	{ErrTransferNotFound, CodeNotFound},
	{ErrLoanNotFound, CodeLoanNotFound},
	{ErrLoanOverpayment, CodeLoanOverpayment},
	{ErrAccountInactive, CodeAccountInactive},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrLoanNotActive, CodeLoanNotActive},
	{ErrIdempotencyKeyConflict, CodeIdempotencyKeyConflict},
	{ErrConcurrencyConflict, CodeConcurrencyConflict},
	{ErrExternalGatewayTimeout, CodeGatewayTimeout},
	{ErrExternalGatewayFailure, CodeGatewayFailure},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrDuplicate, CodeDuplicate},
	{ErrForbidden, CodeForbidden},
	{ErrValidation, CodeValidation},
	{ErrNotFound, CodeNotFound},
}

// CodeOf returns the stable client-facing code for err.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}

// sentinelByCode is the inverse of codeTable, used to rebuild errors from stored outcomes.
var sentinelByCode = map[string]error{
	CodeValidation:             ErrValidation,
	CodeNotFound:               ErrNotFound,
	CodeAccountNotFound:        ErrAccountNotFound,
	CodeAccountInactive:        ErrAccountInactive,
	CodeInsufficientFunds:      ErrInsufficientFunds,
	CodeLoanNotFound:           ErrLoanNotFound,
	CodeLoanNotActive:          ErrLoanNotActive,
	CodeLoanOverpayment:        ErrLoanOverpayment,
	CodeIdempotencyKeyConflict: ErrIdempotencyKeyConflict,
	CodeConcurrencyConflict:    ErrConcurrencyConflict,
	CodeGatewayTimeout:         ErrExternalGatewayTimeout,
	CodeGatewayFailure:         ErrExternalGatewayFailure,
	CodeInvalidTransition:      ErrInvalidTransition,
	CodeDuplicate:              ErrDuplicate,
	CodeForbidden:              ErrForbidden,
}

// FromCode rebuilds a typed error from a stored code and message.
func FromCode(code, message string) error {
	sentinel, ok := sentinelByCode[code]
	if !ok {
		sentinel = ErrInternal
	}
	return &AppError{Code: code, Message: message, Err: sentinel}
}

// IsTerminal reports whether err is a business outcome that must be replayed as-is
// rather than retried.
func IsTerminal(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrExternalGatewayTimeout),
		errors.Is(err, ErrExternalGatewayFailure),
		errors.Is(err, ErrInternal):
		return false
	}
	return CodeOf(err) != CodeInternal
}
