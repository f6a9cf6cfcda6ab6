package usecase

import (
	"errors"
	"strings"

	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
)

// Fragments that mark a credential as dead regardless of provider.
var authFatalFragments = []string{
	"invalid_grant",
	"invalid_token",
	"unauthorized",
	"unauthorized_client",
	"authentication_failed",
	"token_expired",
}

// IsAuthFatal reports whether err means the integration's credential is dead
// and the pass must stop. Everything else is transient: the pass records it
// and continues.
func IsAuthFatal(err error) bool {
	if err == nil {
		return false
	}

	var perr *mailprovider.Error
	if errors.As(err, &perr) {
		if perr.Kind == mailprovider.KindAuthExpired {
			return true
		}
		if perr.StatusCode == 401 || perr.StatusCode == 403 {
			return true
		}
		if containsAuthFragment(perr.Code) || containsAuthFragment(perr.Message) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if containsAuthFragment(msg) {
		return true
	}
	return strings.Contains(msg, "auth") && strings.Contains(msg, "fail")
}

func containsAuthFragment(s string) bool {
	s = strings.ToLower(s)
	for _, fragment := range authFatalFragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

// ExtractMessage produces a human-readable cause from any provider failure.
// Error shapes are provider-dependent and unreliable, so it degrades through
// the normalized shape down to a generic fallback and never panics.
func ExtractMessage(err error) string {
	if err == nil {
		return ""
	}

	var perr *mailprovider.Error
	if errors.As(err, &perr) {
		if perr.Message != "" {
			return perr.Message
		}
		if perr.Code != "" {
			return perr.Code
		}
		if perr.Err != nil {
			return perr.Err.Error()
		}
		return string(perr.Kind)
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unexpected provider error"
}
