package httpx

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client for outbound calls such as Slack
// notifications. A non-positive timeoutSeconds uses DefaultTimeout.
func NewClient(timeoutSeconds int) *http.Client {
	return &http.Client{Timeout: Timeout(timeoutSeconds)}
}

func Timeout(timeoutSeconds int) time.Duration {
	if timeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(timeoutSeconds) * time.Second
}
