package dto

import "net/http"

// Error code constants returned to storefront clients
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeConnection is used when the backend cannot be reached
	ErrCodeConnection = "ERR_CONNECTION"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeBusy is used when the same control already has a request in flight
	ErrCodeBusy = "ERR_BUSY"
	// ErrCodeConfirmationRequired is used when a removal was not confirmed
	ErrCodeConfirmationRequired = "ERR_CONFIRMATION_REQUIRED"
)

// Business rule error codes
const (
	// ErrCodeRejected is used when the backend refused a mutation
	ErrCodeRejected     = "ERR_REJECTED"
	ErrCodeEmptyCart    = "ERR_EMPTY_CART"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Payment error codes
const (
	ErrCodePaymentTimeout = "ERR_PAYMENT_SDK_TIMEOUT"
	ErrCodePayment        = "ERR_PAYMENT"
	ErrCodePendingOrder   = "ERR_PAYMENT_PENDING_ORDER"
	ErrCodeNoCheckoutURL  = "ERR_PAYMENT_NO_CHECKOUT_URL"
	ErrCodeNoSession      = "ERR_PAYMENT_NO_SESSION"
	ErrCodeCaptureFailed  = "ERR_PAYMENT_CAPTURE_INCOMPLETE"
	// ErrCodeAmountMismatch is used when PayPal captured a different amount
	ErrCodeAmountMismatch  = "ERR_PAYMENT_AMOUNT_MISMATCH"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
	// ErrCodeMaxConnections is used when no more badge streams can be opened
	ErrCodeMaxConnections = "ERR_MAX_CONNECTIONS_REACHED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeConnection: http.StatusBadGateway,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeBusy:                 http.StatusConflict,
	ErrCodeConfirmationRequired: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeRejected:     http.StatusUnprocessableEntity,
	ErrCodeEmptyCart:    http.StatusUnprocessableEntity,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodePaymentTimeout: http.StatusGatewayTimeout,
	ErrCodePayment:        http.StatusBadGateway,
	ErrCodePendingOrder:   http.StatusBadGateway,
	ErrCodeNoCheckoutURL:  http.StatusBadGateway,
	ErrCodeNoSession:      http.StatusConflict,
	ErrCodeCaptureFailed:  http.StatusPaymentRequired,
	ErrCodeAmountMismatch: http.StatusConflict,

	ErrCodeTooManyRequests: http.StatusTooManyRequests,
	ErrCodeMaxConnections:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the codes sent to clients
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"UNAUTHORIZED":          ErrCodeUnauthorized,
	"FORBIDDEN":             ErrCodeForbidden,
	"CONNECTION_ERROR":      ErrCodeConnection,
	"BUSY":                  ErrCodeBusy,
	"CONFIRMATION_REQUIRED": ErrCodeConfirmationRequired,
	"REJECTED":              ErrCodeRejected,
	"EMPTY_CART":            ErrCodeEmptyCart,
	"INVALID_STATE":         ErrCodeInvalidState,
	"SDK_TIMEOUT":           ErrCodePaymentTimeout,
	"PAYPAL_ERROR":          ErrCodePayment,
	"PENDING_ORDER_FAILED":  ErrCodePendingOrder,
	"NO_CHECKOUT_URL":       ErrCodeNoCheckoutURL,
	"NO_PAYMENT_SESSION":    ErrCodeNoSession,
	"CAPTURE_INCOMPLETE":    ErrCodeCaptureFailed,
	"AMOUNT_MISMATCH":       ErrCodeAmountMismatch,
}

// NormalizeErrorCode converts a domain error code to the client format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
