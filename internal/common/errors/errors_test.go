package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_ErrorString(t *testing.T) {
	err := NewInvalidJSONBodyError(fmt.Errorf("unexpected end of JSON input"))
	assert.Equal(t, "StandardError[INVALID_JSON_BODY]: Invalid JSON body: unexpected end of JSON input", err.Error())

	runErr := NewAssistantRunFailedError("failed", "run_1")
	assert.Equal(t, "StandardError[ASSISTANT_RUN_FAILED]: Assistant run failed: failed", runErr.Error())
}

func TestStandardError_Unwrap(t *testing.T) {
	err := NewAssistantTransportError("create_thread", context.DeadlineExceeded)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))

	wrapped := fmt.Errorf("ask: %w", err)
	assert.True(t, HasCode(wrapped, ErrCodeAssistantTransportFailed))
	assert.False(t, HasCode(wrapped, ErrCodeAssistantRunFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	std := NewPromptRequiredError("missing")
	assert.Same(t, std, Normalize(fmt.Errorf("outer: %w", std)))

	plain := Normalize(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestLogFields(t *testing.T) {
	fields := NewAssistantRunFailedError("expired", "run_9").LogFields()

	assert.Equal(t, "ASSISTANT_RUN_FAILED", fields["errorCode"])
	assert.Equal(t, "orchestration", fields["errorCategory"])
	assert.Equal(t, "expired", fields["terminalState"])
	assert.Equal(t, "run_9", fields["runId"])
	assert.NotContains(t, fields, "details")
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeBodyReadFailed, "input"},
		{ErrCodeInvalidJSONBody, "input"},
		{ErrCodePromptRequired, "input"},
		{ErrCodeAssistantTransportFailed, "transport"},
		{ErrCodeAssistantRunFailed, "orchestration"},
		{ErrCodeAssistantRunTimeout, "orchestration"},
		{ErrCodeInternal, "internal"},
		{ErrorCode("SOMETHING_ELSE"), "internal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}
