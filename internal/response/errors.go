package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidConfig  ErrCode = "INVALID_SESSION_CONFIG"
	ErrOutOfRange     ErrCode = "OUT_OF_RANGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrTooManySessions ErrCode = "TOO_MANY_SESSIONS"

	// ─── Question providers ────────────────────────────────────────────
	ErrNoQuestions             ErrCode = "NO_QUESTIONS"
	ErrInvalidSpecialization   ErrCode = "INVALID_SPECIALIZATION"
	ErrInsufficientQuestions   ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrProviderUnavailable     ErrCode = "PROVIDER_UNAVAILABLE"
	ErrQuestionGenerationError ErrCode = "GENERATION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidConfig:
		return "The session configuration is not valid."
	case ErrOutOfRange:
		return "The question or option index is out of range."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrSessionNotFound:
		return "Session not found."
	case ErrTooManySessions:
		return "You already have a session in progress."

	// ─── Question providers ────────────────────────────────────────────
	case ErrNoQuestions:
		return "No questions were available for this session."
	case ErrInvalidSpecialization:
		return "Unknown specialization."
	case ErrInsufficientQuestions:
		return "Not enough questions are available for the requested count."
	case ErrProviderUnavailable:
		return "The question source is temporarily unavailable."
	case ErrQuestionGenerationError:
		return "Question generation failed."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
