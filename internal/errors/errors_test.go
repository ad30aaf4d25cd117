package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RendersCodeAndFixedMessage(t *testing.T) {
	err := New(CodeTooManyRequests)

	assert.Equal(t, "[TOO_MANY_REQUESTS] too many concurrent executions", err.Error())
	assert.Equal(t, "too many concurrent executions", err.UserMessage())
}

func TestWrap_KeepsCauseOutOfRenderedString(t *testing.T) {
	cause := fmt.Errorf("qmd exited 1: /home/alice/notes: permission denied")
	err := Wrap(CodeExecutionFailed, cause)

	require.NotNil(t, err)
	// The cause must stay reachable for logging but invisible to callers.
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "/home/alice")
	assert.NotContains(t, err.UserMessage(), "permission denied")
}

func TestWrap_NilCauseReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := Wrap(CodeExecutionTimeout, fmt.Errorf("signal: killed"))

	assert.True(t, stderrors.Is(err, New(CodeExecutionTimeout)))
	assert.False(t, stderrors.Is(err, New(CodeExecutionFailed)))
}

func TestInvalidPath_CarriesReason(t *testing.T) {
	err := InvalidPath(PathNotDirectory)

	assert.Equal(t, CodeInvalidPath, err.Code)
	assert.Equal(t, string(PathNotDirectory), err.Reason)
	assert.Contains(t, err.Error(), "not-a-directory")
}

func TestInvalidPath_ReasonsAreDistinct(t *testing.T) {
	reasons := []PathReason{PathNotAbsolute, PathDangerous, PathMissing, PathNotDirectory}
	seen := map[string]bool{}
	for _, r := range reasons {
		msg := InvalidPath(r).Error()
		assert.False(t, seen[msg], "reason %s not distinguishable", r)
		seen[msg] = true
	}
}

func TestCodeOf_WalksWrappedChain(t *testing.T) {
	inner := New(CodeNotFound)
	outer := fmt.Errorf("removing tenant: %w", inner)

	assert.Equal(t, CodeNotFound, CodeOf(outer))
	assert.True(t, HasCode(outer, CodeNotFound))
}

func TestCodeOf_PlainErrorFallsBackToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("boom")))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestUserMessage_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "internal error", UserMessage(Code("BOGUS")))
}
