package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_WrappedSentinels(t *testing.T) {
	cases := map[error]string{
		ErrMissingToken: "missing_token",
		fmt.Errorf("verify: %w", ErrUnauthorized):       "unauthorized",
		fmt.Errorf("handshake: %w", ErrInvalidSecret):   "invalid_secret",
		fmt.Errorf("domain %q: %w", "x", ErrInvalidTLD): "fail_domain_tld",
		errors.New("boom"):                              "internal",
	}
	for err, want := range cases {
		assert.Equal(t, want, Kind(err), "err=%v", err)
	}
	assert.Equal(t, "", Kind(nil))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(ErrMissingAuthHeader))
	assert.True(t, IsAuthFailure(fmt.Errorf("x: %w", ErrUnauthorized)))
	assert.False(t, IsAuthFailure(ErrInvalidSecret))
}
