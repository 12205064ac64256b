package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: User & Auth module errors
// 12000-12999: Study module errors
// 13000-13999: Verification pipeline errors
// 14000-14999: Modification module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201
	LockFailed ErrorCode = 10202

	// Storage errors (10300-10399)
	StorageError     ErrorCode = 10300
	ObjectNotFound   ErrorCode = 10301
	DownloadFailed   ErrorCode = 10302
	UploadFailed     ErrorCode = 10303
	ObjectTooLarge   ErrorCode = 10304
	InvalidObjectKey ErrorCode = 10305

	// Validation errors (10400-10499)
	ValidationFailed   ErrorCode = 10400
	InvalidFormat      ErrorCode = 10401
	RequiredFieldEmpty ErrorCode = 10402

	// ========== User & Auth Module Errors (11000-11999) ==========

	// Authentication (11000-11099)
	UserNotFound ErrorCode = 11000
	TokenExpired ErrorCode = 11001
	TokenInvalid ErrorCode = 11002

	// User operations (11100-11199)
	PointsUpdateFailed ErrorCode = 11100

	// ========== Study Module Errors (12000-12999) ==========

	// Study basic (12000-12099)
	StudyNotFound      ErrorCode = 12000
	StudyCreateFailed  ErrorCode = 12001
	StudyUpdateFailed  ErrorCode = 12002
	StudyNotVerifiable ErrorCode = 12003

	// Study files (12100-12199)
	DatasetMissing ErrorCode = 12100
	ScriptMissing  ErrorCode = 12101

	// ========== Verification Pipeline Errors (13000-13999) ==========

	// Intake (13000-13099)
	VerificationNotFound   ErrorCode = 13000
	VerificationInProgress ErrorCode = 13001
	VerifyQueueFull        ErrorCode = 13002

	// Pipeline (13100-13199)
	SecurityViolation   ErrorCode = 13100
	SandboxUnavailable  ErrorCode = 13101
	ExecutionFailed     ErrorCode = 13102
	ResourceLimitKilled ErrorCode = 13103
	ComparatorFailed    ErrorCode = 13104
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",
	LockFailed: "Failed to acquire lock",

	// Storage
	StorageError:     "Object storage operation failed",
	ObjectNotFound:   "Object not found in storage",
	DownloadFailed:   "Failed to download object",
	UploadFailed:     "Failed to upload object",
	ObjectTooLarge:   "Object is too large",
	InvalidObjectKey: "Invalid object key",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	// User & Auth
	UserNotFound: "User not found",
	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid token",

	PointsUpdateFailed: "Failed to update user points",

	// Study
	StudyNotFound:      "Study not found",
	StudyCreateFailed:  "Failed to create study",
	StudyUpdateFailed:  "Failed to update study",
	StudyNotVerifiable: "Study has no runnable analysis attached",

	DatasetMissing: "Study dataset file is missing",
	ScriptMissing:  "Study analysis script is missing",

	// Verification
	VerificationNotFound:   "Verification not found",
	VerificationInProgress: "Verification already in progress",
	VerifyQueueFull:        "Verification queue is full, please try again later",

	SecurityViolation:   "Code failed security vetting",
	SandboxUnavailable:  "Sandbox service unavailable",
	ExecutionFailed:     "Code execution failed",
	ResourceLimitKilled: "Execution exceeded time or memory limits",
	ComparatorFailed:    "Output comparison failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == RecordNotFound, c == ObjectNotFound,
		c == UserNotFound, c == StudyNotFound, c == VerificationNotFound:
		return 404
	case c == VerificationInProgress:
		return 409
	case c == TooManyRequests, c == VerifyQueueFull:
		return 429
	case c == ServiceUnavailable, c == SandboxUnavailable:
		return 503
	case c >= 10400 && c < 10500: // Validation errors
		return 400
	case c == InvalidParams, c == SecurityViolation:
		return 400
	default:
		return 500
	}
}
