package connector

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryingClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newRetryingClient(5 * time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryingClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newRetryingClient(5 * time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req, nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, int32(maxRequestAttempts), calls.Load())

	var statusErr *statusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode())
}

func TestRetryingClient_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	var firstAttempt, secondAttempt time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			firstAttempt = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			secondAttempt = time.Now()
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := newRetryingClient(5 * time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// The second attempt must wait at least the advertised Retry-After second
	assert.GreaterOrEqual(t, secondAttempt.Sub(firstAttempt), time.Second)
}

func TestRetryingClient_DoesNotRetryDNSFailures(t *testing.T) {
	client := newRetryingClient(2 * time.Second)
	req, err := http.NewRequest(http.MethodGet, "http://host.invalid.stocksync.test/x", nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := client.Do(context.Background(), req, nil)
	require.Error(t, err)
	assert.Nil(t, resp)

	var dnsErr *net.DNSError
	assert.ErrorAs(t, err, &dnsErr)
	// A single failed attempt, no backoff sleeps
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRetryingClient_ContextCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	client := newRetryingClient(5 * time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(ctx, req, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
	assert.Equal(t, 4*time.Second, backoffDelay(3))
	assert.Equal(t, 8*time.Second, backoffDelay(4))
	// Capped beyond the fourth attempt
	assert.Equal(t, 8*time.Second, backoffDelay(7))
}
