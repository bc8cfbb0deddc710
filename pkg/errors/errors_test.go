package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{ErrInvalidAPIKey, http.StatusUnauthorized},
		{ErrRateLimitExceeded, http.StatusTooManyRequests},
		{ErrDeploymentNotFound, http.StatusNotFound},
		{ErrAPIKeyNotFound, http.StatusNotFound},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrInvalidSeries, http.StatusBadRequest},
		{ErrModelNotTrained, http.StatusConflict},
		{ErrPredictionFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestAppError_Chain(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := fmt.Errorf("predict: %w", ErrPredictionFailed.WithError(cause))

	assert.True(t, IsAppError(wrapped))
	assert.True(t, HasCode(wrapped, CodePredictionFailed))
	assert.True(t, stderrors.Is(wrapped, ErrPredictionFailed))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeUnknown, AsAppError(cause).Code)

	// WithDetail 不修改预定义错误
	_ = ErrDeploymentNotFound.WithDetail("d-1")
	assert.Empty(t, ErrDeploymentNotFound.Detail)
}
