package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a provider failure so callers can decide on
// fallback without sniffing status codes or message strings.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindConfiguration
	KindUnauthorized
	KindPaymentRequired
	KindForbidden
	KindNotFound
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUnauthorized:
		return "unauthorized"
	case KindPaymentRequired:
		return "payment_required"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// ProviderError is a classified failure from an embedding or generation
// provider.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (%s): %s: %s", e.Provider, e.Model, e.Kind, e.Message)
}

// Fallbackable reports whether the failure indicates the model itself is
// unavailable or access-denied, the only class the embedding fallback
// tier responds to. Unauthorized is deliberately excluded: a bad
// credential fails the fallback model too.
func (e *ProviderError) Fallbackable() bool {
	switch e.Kind {
	case KindPaymentRequired, KindForbidden, KindNotFound, KindRateLimited:
		return true
	}
	return false
}

// KindOf extracts the ErrorKind from err, or KindOther for errors that
// did not originate from a provider.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// kindFromStatus maps an HTTP status code onto an ErrorKind.
func kindFromStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusPaymentRequired:
		return KindPaymentRequired
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindOther
	}
}
