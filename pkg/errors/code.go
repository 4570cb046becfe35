package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth errors
// 12000-12999: Contest & Problem errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Broker & Pipeline errors
// 15000-15999: Plagiarism check errors

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
	ServiceUnavailable  ErrorCode = 10006
	Timeout             ErrorCode = 10007

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Auth Errors (11000-11999) ==========

	TokenExpired ErrorCode = 11000
	TokenInvalid ErrorCode = 11001

	// ========== Contest & Problem Errors (12000-12999) ==========

	ContestNotActive     ErrorCode = 12000
	UserNotRegistered    ErrorCode = 12001
	ProblemNotFound      ErrorCode = 12100
	TestcasesNotFound    ErrorCode = 12101
	SubmissionLimitHit   ErrorCode = 12200
	SubmissionCountError ErrorCode = 12201

	// ========== Submission & Judge Errors (13000-13999) ==========

	LanguageNotSupported ErrorCode = 13000

	// Sandbox verdicts (13100-13199)
	JudgeSystemError    ErrorCode = 13100
	CompilationError    ErrorCode = 13101
	RuntimeError        ErrorCode = 13102
	TimeLimitExceeded   ErrorCode = 13103
	MemoryLimitExceeded ErrorCode = 13104
	SegmentationFault   ErrorCode = 13105
	FileNotFound        ErrorCode = 13106
	EngineUnavailable   ErrorCode = 13107

	// ========== Broker & Pipeline Errors (14000-14999) ==========

	BrokerFailure     ErrorCode = 14000
	PublishFailed     ErrorCode = 14001
	ResponseTimeout   ErrorCode = 14002
	TaskDecodeFailed  ErrorCode = 14003
	CorrelationMissed ErrorCode = 14004

	// ========== Plagiarism Check Errors (15000-15999) ==========

	NormalizationFailed ErrorCode = 15000
	EmbeddingFailed     ErrorCode = 15001
	CheckBatchInvalid   ErrorCode = 15002
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
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Auth
	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid or expired token",

	// Contest & Problem
	ContestNotActive:     "Contest is not currently active",
	UserNotRegistered:    "User is not an approved registration of this contest",
	ProblemNotFound:      "Problem not found in contest",
	TestcasesNotFound:    "No testcases found for the problem",
	SubmissionLimitHit:   "Submission limit reached for this problem",
	SubmissionCountError: "Failed to fetch submission count",

	// Judge
	LanguageNotSupported: "Unsupported processor",
	JudgeSystemError:     "Judge system error",
	CompilationError:     "Compilation Error",
	RuntimeError:         "Runtime Error",
	TimeLimitExceeded:    "Time Limit Exceeded: Code execution took too long",
	MemoryLimitExceeded:  "Memory Limit Exceeded: Code execution used too much memory",
	SegmentationFault:    "Segmentation Fault",
	FileNotFound:         "File not found",
	EngineUnavailable:    "Container engine is not available or not running",

	// Broker & Pipeline
	BrokerFailure:     "Message broker failure",
	PublishFailed:     "Failed to publish task",
	ResponseTimeout:   "Timed out waiting for judge response",
	TaskDecodeFailed:  "Failed to decode task message",
	CorrelationMissed: "Task is missing a correlation id",

	// Plagiarism check
	NormalizationFailed: "Code normalization failed",
	EmbeddingFailed:     "Code embedding failed",
	CheckBatchInvalid:   "Invalid plagiarism check batch",
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
	case c == Forbidden, c == ContestNotActive, c == UserNotRegistered, c == SubmissionLimitHit:
		return 403
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == InvalidParams, c == LanguageNotSupported, c == TestcasesNotFound,
		c == ValidationFailed, c == RequiredFieldEmpty, c == CheckBatchInvalid:
		return 400
	case c == ServiceUnavailable, c == EngineUnavailable:
		return 503
	case c == Timeout, c == ResponseTimeout:
		return 504
	default:
		return 500
	}
}
