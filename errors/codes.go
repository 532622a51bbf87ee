package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Session lifecycle errors
const (
	// ErrCodeEngineUnavailable indicates the diarization engine failed its availability check.
	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	// ErrCodeAlreadyActive indicates a session is already running for another meeting.
	ErrCodeAlreadyActive ErrorCode = "ALREADY_ACTIVE"
	// ErrCodeInvalidTransition indicates an action is not valid from the current state.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Event ingestion errors
const (
	// ErrCodeUnknownSpeaker indicates an identification targeted an unregistered speaker tag.
	ErrCodeUnknownSpeaker ErrorCode = "UNKNOWN_SPEAKER"
	// ErrCodeSessionFenced indicates an event belongs to a stale or different session.
	ErrCodeSessionFenced ErrorCode = "SESSION_FENCED"
)

// Recovery errors
const (
	// ErrCodeRecoveryFailed indicates the recovery queue rejected a job.
	ErrCodeRecoveryFailed ErrorCode = "RECOVERY_FAILED"
)

// Generic errors
const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeEngineUnavailable: true,
	ErrCodeRecoveryFailed:    true,
	ErrCodeTimeout:           true,
	ErrCodeExternalService:   true,
	ErrCodeRateLimited:       true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
