package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category. Callers use it to decide
// whether an operation can be retried and what guidance to render.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUnavailable         Kind = "unavailable"
	KindInvalidTransition   Kind = "invalid_transition"
	KindStaleState          Kind = "stale_state"
	KindTransient           Kind = "transient"
	KindGatewayVerification Kind = "gateway_verification"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
}

var InvalidPageParam = &Failure{Code: http.StatusBadRequest, Kind: KindValidation, Message: "invalid page parameter"}
var InvalidLimitParam = &Failure{Code: http.StatusBadRequest, Kind: KindValidation, Message: "invalid limit parameter"}
var ForbiddenError = &Failure{Code: http.StatusForbidden, Kind: KindForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

// BadRequest returns a new Failure with code for bad requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Kind:    KindValidation,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure with code for bad requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Kind:    KindValidation,
		Message: msg,
	}
}

// Unauthorized returns a new Failure with code for unauthorized requests.
func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Kind:    KindUnauthorized,
		Message: msg,
	}
}

// InternalError returns a new Failure with code for internal error and message derived from an error interface.
func InternalError(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	return nil
}

// NotFound returns a new Failure with code for entity not found.
func NotFound(entityName string) error {
	return &Failure{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: entityName,
	}
}

// Conflict returns a new Failure for a requested interval overlapping an
// existing active booking. The caller may retry with different dates.
func Conflict(message string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

// Unavailable returns a new Failure for a delisted or deactivated vehicle.
func Unavailable(message string) error {
	return &Failure{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindUnavailable,
		Message: message,
	}
}

// InvalidTransition returns a new Failure for a state change that violates a
// state machine guard, naming the current and requested status.
func InvalidTransition(current, requested string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("invalid transition from %s to %s", current, requested),
	}
}

// StaleState returns a new Failure for a lost concurrent-modification race.
// The caller should reload and may retry the same logical operation.
func StaleState(entityName string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindStaleState,
		Message: fmt.Sprintf("%s was modified concurrently, reload and retry", entityName),
	}
}

// Transient returns a new Failure for storage or network timeouts. The caller
// retries a bounded number of times with backoff.
func Transient(message string) error {
	return &Failure{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindTransient,
		Message: message,
	}
}

// GatewayVerification returns a new Failure for a webhook payload whose
// signature did not verify. No booking or payment state changes.
func GatewayVerification(message string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Kind:    KindGatewayVerification,
		Message: message,
	}
}

func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Kind:    KindForbidden,
		Message: msg,
	}
}

// GetCode returns the error code of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetKind returns the failure kind of an error interface, or the empty Kind
// for untyped errors.
func GetKind(err error) Kind {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Kind
	}

	return ""
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}
