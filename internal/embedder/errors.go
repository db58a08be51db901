package embedder

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies provider failures for the callers that must react
// differently to each: fatal errors abort a generation job, rate limits are
// retried with backoff, everything else is a transient batch failure.
type ErrorKind string

const (
	// KindFatal covers invalid credentials and exhausted quota/billing.
	// Never retried.
	KindFatal ErrorKind = "fatal"
	// KindRateLimited covers throttling responses; the same request can
	// succeed after backing off.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers timeouts, 5xx responses, and anything else that
	// may succeed on a later batch.
	KindTransient ErrorKind = "transient"
)

// ProviderError wraps a provider failure with its classification.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int // HTTP status, zero for network-level failures
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s error %d: %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classifyHTTPError maps a non-200 provider response to an error kind.
// Quota exhaustion arrives as 429 on some providers, so the body is
// inspected to distinguish billing problems from throttling.
func classifyHTTPError(provider string, status int, body string) *ProviderError {
	kind := KindTransient

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusPaymentRequired:
		kind = KindFatal
	case status == http.StatusTooManyRequests:
		if isQuotaBody(body) {
			kind = KindFatal
		} else {
			kind = KindRateLimited
		}
	case status >= 500:
		kind = KindTransient
	}

	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Status:   status,
		Message:  truncateBody(body),
	}
}

// isQuotaBody detects quota/billing exhaustion in a 429 response body.
func isQuotaBody(body string) bool {
	body = strings.ToLower(body)
	return strings.Contains(body, "insufficient_quota") ||
		strings.Contains(body, "quota") ||
		strings.Contains(body, "billing")
}

func truncateBody(body string) string {
	const max = 256
	body = strings.TrimSpace(body)
	if len(body) > max {
		return body[:max]
	}
	return body
}

// transientError wraps a network-level failure (connection reset, timeout).
func transientError(provider string, err error) *ProviderError {
	return &ProviderError{
		Kind:     KindTransient,
		Provider: provider,
		Message:  err.Error(),
		Err:      err,
	}
}

// IsFatal reports whether err is a non-retryable provider failure.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindFatal
}

// IsRateLimited reports whether err is a throttling response.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

// IsTransient reports whether err may succeed on retry. Unclassified errors
// count as transient so unknown failures never abort a whole job.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	return true
}
