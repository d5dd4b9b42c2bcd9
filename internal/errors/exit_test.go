package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "nil error returns success", err: nil, wantCode: ExitSuccess},
		{name: "validation error", err: ErrValidation, wantCode: ExitValidationError},
		{name: "wrapped validation error", err: Wrap(ErrValidation, "bad config"), wantCode: ExitValidationError},
		{name: "render parse error", err: fmt.Errorf("view alice: %w", ErrRenderParse), wantCode: ExitValidationError},
		{name: "connectivity error", err: NewConnectivityError("timeout", nil, ""), wantCode: ExitConnectivityError},
		{name: "not found error", err: NewNotFoundError("gone", "x", ""), wantCode: ExitNotFound},
		{name: "drift", err: fmt.Errorf("%w: 1 missing", ErrDrift), wantCode: ExitDriftDetected},
		{name: "dependency blocked", err: NewDependencyBlockedError("t", []string{"a"}), wantCode: ExitDependencyBlocked},
		{name: "explicit exit error", err: &ExitError{Err: errors.New("x"), Code: 42}, wantCode: 42},
		{name: "unknown error", err: context.Canceled, wantCode: ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, ExitCodeFromError(tt.err))
		})
	}
}

func TestExitCodeName(t *testing.T) {
	assert.Equal(t, "Drift Detected", ExitCodeName(ExitDriftDetected))
	assert.Equal(t, "Dependency Blocked", ExitCodeName(ExitDependencyBlocked))
	assert.Equal(t, "Unknown", ExitCodeName(99))
}

func TestWithExitCode(t *testing.T) {
	assert.NoError(t, WithExitCode(nil, false))

	err := WithExitCode(fmt.Errorf("%w: x", ErrDrift), true)
	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitDriftDetected, exitErr.Code)
	assert.True(t, exitErr.Printed)
	assert.ErrorIs(t, err, ErrDrift)
}
