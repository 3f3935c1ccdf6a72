package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodesSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("failed to look up log source: %w", ErrNotFound("Unable to find Offense ID: 3"))

	assert.True(t, HasErrorCode(err, ErrCodeNotFound))
	assert.False(t, HasErrorCode(err, ErrCodeTransport))
	assert.Equal(t, "Unable to find Offense ID: 3", UserMessage(err))
}

func TestTransportUserMessageKeepsCause(t *testing.T) {
	err := ErrTransport("GET api/siem/offenses failed", errors.New("connection refused"))

	assert.Equal(t, "GET api/siem/offenses failed: connection refused", UserMessage(err))
	assert.True(t, errors.Is(err, err.Cause))
}

func TestWrapErrorKeepsExistingAppError(t *testing.T) {
	original := ErrConfiguration("Incompatible type provided")

	wrapped := WrapError(fmt.Errorf("resolve: %w", original), ErrCodeInternal, "unexpected")
	assert.Equal(t, ErrCodeConfiguration, wrapped.Code)

	plain := WrapError(errors.New("boom"), ErrCodeInternal, "unexpected")
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Cause.Error())

	assert.Nil(t, WrapError(nil, ErrCodeInternal, "unexpected"))
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Nil(t, errs.ToAppError())

	errs.Add("type_name|type_id", "parameters are mutually exclusive", nil)
	errs.Add("", "value of state must be one of: present, absent, got: up", "up")
	require.True(t, errs.HasErrors())

	appErr := errs.ToAppError()
	require.NotNil(t, appErr)
	assert.Equal(t, ErrCodeValidationFailed, appErr.Code)
	assert.Equal(t, "parameters are mutually exclusive: type_name|type_id; value of state must be one of: present, absent, got: up", appErr.Message)
	assert.Len(t, appErr.Context["validation_errors"], 2)
}
