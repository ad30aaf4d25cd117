// Package mcp exposes the bridge to a single tenant over the Model Context
// Protocol. The server is bound to one tenant at startup; tool calls can
// never name a collection.
package mcp

import (
	"fmt"

	bberrors "github.com/s950329/qmd-bridge/internal/errors"
)

// JSON-RPC error codes used by the bridge.
const (
	// ErrCodeRateLimited indicates the tenant exhausted its rate or
	// concurrency budget.
	ErrCodeRateLimited = -32001

	// ErrCodeExecutionFailed indicates the search tool failed or timed out.
	ErrCodeExecutionFailed = -32002

	// ErrCodeIndexInProgress indicates an index build is already running.
	ErrCodeIndexInProgress = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params error with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts bridge failures to protocol errors. The message is always
// the taxonomy's fixed user message; causes never cross the protocol boundary.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	code := bberrors.CodeOf(err)
	msg := bberrors.UserMessage(code)
	switch code {
	case bberrors.CodeInvalidCommand:
		return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
	case bberrors.CodeTooManyRequests:
		return &MCPError{Code: ErrCodeRateLimited, Message: msg}
	case bberrors.CodeExecutionTimeout, bberrors.CodeExecutionFailed:
		return &MCPError{Code: ErrCodeExecutionFailed, Message: msg}
	case bberrors.CodeIndexInProgress:
		return &MCPError{Code: ErrCodeIndexInProgress, Message: msg}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: msg}
	}
}
