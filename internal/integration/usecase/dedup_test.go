package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("msg-1", "invoice.pdf", "application/pdf", 1024)
	b := Fingerprint("msg-1", "invoice.pdf", "application/pdf", 1024)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex-encoded sha256")
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	base := Fingerprint("msg-1", "invoice.pdf", "application/pdf", 1024)
	assert.NotEqual(t, base, Fingerprint("msg-2", "invoice.pdf", "application/pdf", 1024))
	assert.NotEqual(t, base, Fingerprint("msg-1", "receipt.pdf", "application/pdf", 1024))
	assert.NotEqual(t, base, Fingerprint("msg-1", "invoice.pdf", "image/png", 1024))
	assert.NotEqual(t, base, Fingerprint("msg-1", "invoice.pdf", "application/pdf", 2048))
}
