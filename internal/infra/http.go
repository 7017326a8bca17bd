package infra

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ramu/internal/domain"
)

// DefaultTimeout bounds a single remote call unless configured otherwise.
// Calls are never retried.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 512

// NewHTTPClient bounds each call by timeout. Zero leaves the transport's
// defaults in charge.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewStreamingHTTPClient bounds only the wait for response headers, so a body
// handed to a player can be consumed at playback speed. Zero means no bound.
func NewStreamingHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// CheckResponse turns a non-2xx response into a transport failure that
// carries the status and a short excerpt of the body.
func CheckResponse(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return domain.TransportFailure(op, fmt.Errorf("%w: status %d: %s",
		domain.ErrTransportFailure, resp.StatusCode, strings.TrimSpace(string(body))))
}

// SendFailure wraps an error from http.Client.Do or request construction.
func SendFailure(op string, err error) error {
	return domain.TransportFailure(op, fmt.Errorf("%w: %v", domain.ErrTransportFailure, err))
}

// DecodeFailure wraps a response body that could not be parsed.
func DecodeFailure(op string, err error) error {
	return domain.TransportFailure(op, fmt.Errorf("%w: decoding response: %v", domain.ErrTransportFailure, err))
}
