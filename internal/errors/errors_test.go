package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewScanError(CodeProbeFailed, "probe failed")
		assert.Equal(t, CodeProbeFailed, err.Code)
		assert.Equal(t, "[PROBE_FAILED] probe failed", err.Error())
	})

	t.Run("error with target and cause", func(t *testing.T) {
		cause := errors.New("exit status 1")
		err := WrapScanErrorWithTarget(CodeProbeFailed, "port scan failed", "10.0.0.2", cause)
		assert.Equal(t, "[PROBE_FAILED] port scan failed (target: 10.0.0.2): exit status 1", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrPersistence("write", cause)

	assert.Equal(t, CodePersistenceFailed, err.Code)
	assert.Contains(t, err.Error(), "(operation: write)")
	assert.ErrorIs(t, err, cause)
}

func TestConfigError(t *testing.T) {
	err := NewConfigFieldError("must be 1 or 2", "scanning.port_workers", 5)
	assert.Equal(t, "[CONFIG_INVALID] must be 1 or 2 (field: scanning.port_workers)", err.Error())

	wrapped := WrapConfigError("failed to parse", errors.New("yaml: bad indent"))
	assert.Equal(t, CodeConfiguration, GetCode(wrapped))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"scan error", ErrInvalidNetwork("10.0.0.0/33"), CodeInvalidInput},
		{"storage error", ErrNoSnapshot(), CodeNotFound},
		{"wrapped storage error", fmt.Errorf("loading: %w", ErrNoSnapshot()), CodeNotFound},
		{"config error", NewConfigFieldError("bad", "x", nil), CodeConfiguration},
		{"plain error", errors.New("boom"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrScanInProgress(), CodeScanInProgress))
	assert.False(t, IsCode(ErrScanInProgress(), CodeNotFound))
	assert.False(t, IsCode(nil, CodeUnknown))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidNetwork("x"), http.StatusBadRequest},
		{ErrNoSnapshot(), http.StatusNotFound},
		{NewScanError(CodeUnauthorized, "no token"), http.StatusUnauthorized},
		{NewScanError(CodeRateLimited, "slow down"), http.StatusTooManyRequests},
		{ErrScanInProgress(), http.StatusConflict},
		{NewScanError(CodeTimeout, "deadline"), http.StatusGatewayTimeout},
		{ErrPersistence("write", errors.New("io")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(GetCode(tt.err)), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
