package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound        = "not_found"
	ErrCodeSessionNotFound = "session_not_found"

	// Session errors
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodeInvalidAnswer       = "invalid_answer"
	ErrCodeInvalidQuestionBank = "invalid_question_bank"
	ErrCodeSessionNotComplete  = "session_not_complete"
	ErrCodeUnsupportedFormat   = "unsupported_format"

	// Business logic errors
	ErrCodeGuestCreationFailed = "guest_creation_failed"
	ErrCodeRefreshFailed       = "refresh_failed"
	ErrCodeResultsFetchFailed  = "results_fetch_failed"
	ErrCodeExportFailed        = "export_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
