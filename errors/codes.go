package errors

// ErrorCode identifies an application error kind
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS   ErrorCode = 1003
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1004
	ErrorCode_FORBIDDEN        ErrorCode = 1005

	// Rate limiting
	ErrorCode_RATE_LIMIT_EXCEEDED ErrorCode = 2000

	// Upstream providers
	ErrorCode_UPSTREAM_TRANSCRIPT ErrorCode = 3000
	ErrorCode_UPSTREAM_METADATA   ErrorCode = 3001
	ErrorCode_UPSTREAM_EMBEDDING  ErrorCode = 3002
	ErrorCode_UPSTREAM_LLM        ErrorCode = 3003
	ErrorCode_UPSTREAM_EMAIL      ErrorCode = 3004

	// Storage
	ErrorCode_STORE_FAILED ErrorCode = 4000
	ErrorCode_BLOB_FAILED  ErrorCode = 4001
	ErrorCode_CACHE_FAILED ErrorCode = 4002
	ErrorCode_LOCK_FAILED  ErrorCode = 4003
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:             "OK",
	ErrorCode_INTERNAL:            "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:    "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:           "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:      "ALREADY_EXISTS",
	ErrorCode_UNAUTHENTICATED:     "UNAUTHENTICATED",
	ErrorCode_FORBIDDEN:           "FORBIDDEN",
	ErrorCode_RATE_LIMIT_EXCEEDED: "RATE_LIMIT_EXCEEDED",
	ErrorCode_UPSTREAM_TRANSCRIPT: "UPSTREAM_TRANSCRIPT",
	ErrorCode_UPSTREAM_METADATA:   "UPSTREAM_METADATA",
	ErrorCode_UPSTREAM_EMBEDDING:  "UPSTREAM_EMBEDDING",
	ErrorCode_UPSTREAM_LLM:        "UPSTREAM_LLM",
	ErrorCode_UPSTREAM_EMAIL:      "UPSTREAM_EMAIL",
	ErrorCode_STORE_FAILED:        "STORE_FAILED",
	ErrorCode_BLOB_FAILED:         "BLOB_FAILED",
	ErrorCode_CACHE_FAILED:        "CACHE_FAILED",
	ErrorCode_LOCK_FAILED:         "LOCK_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
