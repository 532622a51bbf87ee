package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code, so that
// errors.Is(err, errors.AlreadyActive("", "")) style checks work on codes.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// EngineUnavailable is returned by Start when the engine availability check fails.
func EngineUnavailable(engine string) *AppError {
	return &AppError{
		Code: ErrCodeEngineUnavailable, Message: fmt.Sprintf("The %s diarization engine is not available.", engine),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"engine": engine},
	}
}

// AlreadyActive is returned by Start when a session runs for a different meeting.
func AlreadyActive(activeMeetingID, requestedMeetingID string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyActive, Message: "A diarization session is already active for another meeting.",
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"active_meeting_id": activeMeetingID, "requested_meeting_id": requestedMeetingID},
	}
}

// UnknownSpeaker is returned when an identification references an unregistered tag.
func UnknownSpeaker(tag string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownSpeaker, Message: fmt.Sprintf("Speaker %q has not been observed in this session.", tag),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"speaker_tag": tag},
	}
}

// SessionFenced describes an event dropped because it belongs to another session.
func SessionFenced(eventMeetingID, activeMeetingID string) *AppError {
	return &AppError{
		Code: ErrCodeSessionFenced, Message: "Event does not belong to the active session.",
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"event_meeting_id": eventMeetingID, "active_meeting_id": activeMeetingID},
	}
}

// InvalidTransition is returned when an action is not allowed in the current state.
func InvalidTransition(action, state string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidTransition, Message: fmt.Sprintf("Cannot %s while %s.", action, state),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"action": action, "state": state},
	}
}

// RecoveryFailed wraps a recovery queue failure.
func RecoveryFailed(meetingID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecoveryFailed, Message: "The recovery job could not be scheduled.",
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"meeting_id": meetingID}, Cause: cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// RateLimited is returned when a caller exceeds its request budget.
func RateLimited(retryAfter string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"retry_after": retryAfter},
	}
}
