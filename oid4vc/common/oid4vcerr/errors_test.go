package oid4vcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := New(KindNonceMismatch, "validate response", "expected %q", "abc")

	assert.True(t, errors.Is(err, ErrNonceMismatch))
	assert.False(t, errors.Is(err, ErrExpired))
	assert.Equal(t, `validate response: nonce_mismatch: expected "abc"`, err.Error())
}

func TestErrorIsThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("failed to send response: %w", Wrap(KindDelivery, "send response", cause, "post %s", "https://rp"))

	assert.True(t, errors.Is(err, ErrDelivery))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindDelivery, KindOf(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "resolution", err: New(KindResolution, "", "unknown did"), want: true},
		{name: "delivery", err: New(KindDelivery, "", "503"), want: true},
		{name: "fetch", err: New(KindFetch, "", "timeout"), want: true},
		{name: "signature", err: New(KindInvalidSignature, "", ""), want: false},
		{name: "expired", err: New(KindExpired, "", ""), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}
