package fetcher

import (
	"time"

	"resty.dev/v3"
)

const defaultTimeout = 30 * time.Second

// NewHTTPClient creates the HTTP client used by provider adapters.
// Deliberately no transport-level retry here: retry and backoff are owned by
// the retry executor so every adapter gets one uniform, testable policy
// instead of a second hidden retry loop inside the client.
func NewHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout)
}
