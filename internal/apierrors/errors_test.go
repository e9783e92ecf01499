package apierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound_MatchesWrapped(t *testing.T) {
	base := NewNoSuchBucketError("my-bucket")
	wrapped := fmt.Errorf("put failed: %w", base)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(errors.New("unrelated")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 404, StatusOf(NewTableNotFoundError("Orders")))
	assert.Equal(t, 400, StatusOf(NewValidationError("ValidationException", "bad input")))
	assert.Equal(t, 409, StatusOf(NewConflictError("ResourceInUseException", "already exists")))
	assert.Equal(t, 400, StatusOf(NewConflictError400("ResourceInUseException", "already exists")))
	assert.Equal(t, 500, StatusOf(NewInternalError(errors.New("disk full"))))
	assert.Equal(t, 500, StatusOf(errors.New("plain error")))
}

func TestDependentFailureError_Unwraps(t *testing.T) {
	cause := errors.New("handler panicked")
	err := NewDependentFailureError("States.TaskFailed", "compute invocation failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDependentFailure(fmt.Errorf("state failed: %w", err)))
}
