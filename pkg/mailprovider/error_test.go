package mailprovider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindAuthExpired, KindForStatus(401))
	assert.Equal(t, KindAuthExpired, KindForStatus(403))
	assert.Equal(t, KindNotFound, KindForStatus(404))
	assert.Equal(t, KindRateLimited, KindForStatus(429))
	assert.Equal(t, KindUnknown, KindForStatus(500))
	assert.Equal(t, KindUnknown, KindForStatus(400))
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(401, "authError", "Invalid Credentials", nil)
	assert.Equal(t, "auth_expired: Invalid Credentials", err.Error())

	cause := errors.New("connection refused")
	wrapped := NewError(500, "", "", cause)
	assert.Equal(t, "unknown: connection refused", wrapped.Error())
	assert.True(t, errors.Is(wrapped, cause))

	bare := NewError(429, "", "", nil)
	assert.Equal(t, "rate_limited", bare.Error())
}
