package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndNewf(t *testing.T) {
	err := New(ErrCodeMarketDataMissing, "no bar for EURUSD")
	assert.Equal(t, ErrCodeMarketDataMissing, err.Code)
	assert.Contains(t, err.Error(), "[200]")
	assert.Contains(t, err.Error(), "no bar for EURUSD")

	errf := Newf(ErrCodePositionNotFound, "position %s not found", "abc")
	assert.Contains(t, errf.Error(), "position abc not found")
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeReportWriteFailed, "failed to write stats", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, err.Unwrap())
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"typed error", New(ErrCodeInsufficientMargin, "margin"), ErrCodeInsufficientMargin},
		{"wrapped typed error", Wrap(ErrCodeOrderFailed, "outer", New(ErrCodeInvalidVolume, "inner")), ErrCodeOrderFailed},
		{"plain error", stderrors.New("plain"), ErrCodeUnknown},
		{"nil-ish wrapped plain", Wrap(ErrCodeUnknown, "w", stderrors.New("x")), ErrCodeUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetCode(tc.err))
			assert.True(t, HasCode(tc.err, tc.expected))
		})
	}
}
