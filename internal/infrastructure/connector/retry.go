package connector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	// maxRequestAttempts bounds the shared retry policy for platform calls
	maxRequestAttempts = 3
	// baseBackoff is the first retry delay; it doubles per attempt
	baseBackoff = time.Second
	// maxBackoff caps the retry delay regardless of attempt count
	maxBackoff = 8 * time.Second
	// maxResponseSize is the maximum allowed platform response body (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// retryingClient wraps an http.Client with the platform retry policy:
// HTTP 429 (honoring Retry-After) and 5xx responses are retried, as are
// transport errors, except DNS resolution failures which indicate a
// misconfigured base URL rather than a transient fault.
type retryingClient struct {
	client *http.Client
}

func newRetryingClient(timeout time.Duration) *retryingClient {
	return &retryingClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Do executes the request with retries. The request body, if any, must be
// provided as a byte slice so it can be replayed on each attempt.
func (c *retryingClient) Do(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error
	var nextDelay time.Duration

	for attempt := 0; attempt < maxRequestAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, nextDelay); err != nil {
				return nil, err
			}
		}

		attemptReq := req.Clone(ctx)
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}

		resp, err := c.client.Do(attemptReq)
		if err != nil {
			if !isRetryableTransportError(err) {
				return nil, err
			}
			lastErr = err
			nextDelay = backoffDelay(attempt + 1)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			// A Retry-After hint replaces the exponential backoff
			nextDelay = retryAfterDelay(resp)
			if nextDelay == 0 {
				nextDelay = backoffDelay(attempt + 1)
			}
			drainBody(resp)
			lastErr = &statusError{status: resp.StatusCode}
			continue
		}
		if resp.StatusCode >= 500 {
			drainBody(resp)
			lastErr = &statusError{status: resp.StatusCode}
			nextDelay = backoffDelay(attempt + 1)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// statusError carries a retryable HTTP status through the retry loop
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "platform returned status " + strconv.Itoa(e.status)
}

// StatusCode returns the HTTP status that exhausted the retries
func (e *statusError) StatusCode() int {
	return e.status
}

// isRetryableTransportError reports whether a transport-level failure is worth
// retrying. DNS failures are permanent for the lifetime of a request: the
// host does not resolve, and retrying will not change that.
func isRetryableTransportError(err error) bool {
	var dnsErr *net.DNSError
	return !errors.As(err, &dnsErr)
}

// retryAfterDelay parses the Retry-After header (delta-seconds form)
func retryAfterDelay(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return 0
}

// backoffDelay returns the exponential delay before the given attempt
func backoffDelay(attempt int) time.Duration {
	delay := baseBackoff << uint(attempt-1)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
}

// readBody reads a bounded response body
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}
