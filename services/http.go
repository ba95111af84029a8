package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"divcal/observability"
)

// userAgent is sent to endpoints that reject the default Go client.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StatusError is returned for non-200 responses.
type StatusError struct {
	Operation  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Operation, e.StatusCode)
}

// callExternal wraps one logical provider call with metrics and the named
// circuit breaker.
func callExternal[T any](ctx context.Context, service, operation string, fn func() (T, error)) (T, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(service, operation)
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, service, fn)

	timer.ObserveExternalAPI(service, operation)
	if err != nil {
		metrics.RecordExternalAPIError(service, operation, categorizeAPIError(err))
	}
	return result, err
}

// getJSON fetches url and decodes the body into out. A 404 is reported as a
// permanent ErrNoData; other non-200 statuses are retryable.
func getJSON(ctx context.Context, client *http.Client, operation, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Permanent(fmt.Errorf("failed to create %s request: %w", operation, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", operation, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Permanent(fmt.Errorf("%s: %w", operation, ErrNoData))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Permanent(&StatusError{Operation: operation, StatusCode: resp.StatusCode})
	case resp.StatusCode != http.StatusOK:
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Permanent(fmt.Errorf("failed to decode %s response: %w", operation, err))
	}
	return nil
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, ErrNoData) {
		return "no_data"
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			return "rate_limit"
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth_error"
		}
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case contains(errStr, "timeout", "deadline"):
		return "timeout"
	case contains(errStr, "circuit breaker", "too many requests"):
		return "circuit_open"
	case contains(errStr, "connection", "network", "no such host"):
		return "connection_error"
	default:
		return "unknown"
	}
}

// contains checks if the string contains any of the substrings
func contains(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
