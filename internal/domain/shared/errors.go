package shared

import "errors"

// DomainError represents a storefront error that is shown to the shopper
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so a sentinel still
// matches after the message was replaced with a backend-provided one.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common storefront errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Recurso no encontrado")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Datos inválidos")
	ErrUnauthorized         = NewDomainError("UNAUTHORIZED", "No autenticado")
	ErrConnection           = NewDomainError("CONNECTION_ERROR", "Error de conexión")
	ErrBusy                 = NewDomainError("BUSY", "Operación en curso, espera un momento")
	ErrConfirmationRequired = NewDomainError("CONFIRMATION_REQUIRED", "¿Estás seguro de que quieres eliminar este producto del carrito?")
	ErrRejected             = NewDomainError("REJECTED", "La operación fue rechazada")
)
