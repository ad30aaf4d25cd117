// Package errors provides structured error handling for qmd-bridge.
//
// Every failure that can reach a caller is classified under one of the codes
// below. User-facing output carries only the code and its fixed message;
// wrapped causes (subprocess stderr, host paths) stay in logs.
package errors

// Code identifies a failure class in the bridge taxonomy.
type Code string

const (
	// CodeUnauthorized covers missing, malformed, and unknown credentials.
	// Deliberately undifferentiated so callers learn nothing about which
	// part of the credential check failed.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// Registry codes.
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeInvalidPath   Code = "INVALID_PATH"

	// Gateway codes.
	CodeInvalidCommand   Code = "INVALID_COMMAND"
	CodeTooManyRequests  Code = "TOO_MANY_REQUESTS"
	CodeExecutionTimeout Code = "EXECUTION_TIMEOUT"
	CodeExecutionFailed  Code = "EXECUTION_FAILED"

	// CodeIndexInProgress is surfaced by the boundary layer when a manual
	// trigger races an already-running pipeline. The scheduler itself
	// treats that case as a silent no-op.
	CodeIndexInProgress Code = "INDEX_IN_PROGRESS"

	// CodeInternal is the fallback for unclassified failures.
	CodeInternal Code = "INTERNAL"
)

// PathReason is the sub-reason attached to CodeInvalidPath failures.
type PathReason string

const (
	PathNotAbsolute  PathReason = "not-absolute"
	PathDangerous    PathReason = "dangerous"
	PathMissing      PathReason = "missing"
	PathNotDirectory PathReason = "not-a-directory"
)

// userMessages holds the fixed human-readable message per code. These are the
// only strings a caller ever sees; they never embed request data.
var userMessages = map[Code]string{
	CodeUnauthorized:     "authentication failed",
	CodeNotFound:         "tenant not found",
	CodeAlreadyExists:    "tenant already exists",
	CodeInvalidPath:      "tenant path is invalid",
	CodeInvalidCommand:   "command is not allowed",
	CodeTooManyRequests:  "too many concurrent executions",
	CodeExecutionTimeout: "search tool did not finish in time",
	CodeExecutionFailed:  "search tool execution failed",
	CodeIndexInProgress:  "indexing is already in progress",
	CodeInternal:         "internal error",
}

// UserMessage returns the fixed message for a code.
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeInternal]
}
