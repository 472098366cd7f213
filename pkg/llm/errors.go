package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingAPIKey indicates a required provider credential is absent.
	// Checked before any network call is attempted.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrStreamingNotSupported is returned by Stream for models that have no
	// streaming variant, so the request fails fast instead of failing later
	// mid-call.
	ErrStreamingNotSupported = errors.New("streaming not supported for this model")

	// ErrUnsupportedAPIVersion indicates a configured API version tag outside
	// the provider's allow-list. Failing fast here beats an opaque upstream 404.
	ErrUnsupportedAPIVersion = errors.New("unsupported API version")
)

// UpstreamError wraps a non-2xx upstream response with its status code and
// body text. Upstream failures are never silently swallowed.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, e.Body)
}

// IsTimeout reports whether err was caused by an exceeded call deadline on
// either leg of the request.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
