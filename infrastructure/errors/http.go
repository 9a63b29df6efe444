// Package errors turns non-2xx responses from outbound JSON APIs into typed
// errors that the retry package can classify.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// HTTPError is a failed outbound API call.
type HTTPError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Temporary reports whether the request may succeed if repeated: rate
// limiting and server-side failures.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ParseHTTPError returns nil for 1xx-3xx responses. Otherwise it reads at most
// 4 KiB of the body and extracts a message from the common JSON shapes
// ({"message"}, {"error"}, {"error":{"message"}}).
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: "unreadable error body: " + err.Error()}
	}
	body := strings.TrimSpace(string(raw))

	var shape struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	msg := body
	if json.Unmarshal(raw, &shape) == nil {
		switch {
		case shape.Message != "":
			msg = shape.Message
		case len(shape.Error) > 0:
			var s string
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shape.Error, &s) == nil && s != "" {
				msg = s
			} else if json.Unmarshal(shape.Error, &nested) == nil && nested.Message != "" {
				msg = nested.Message
			}
		}
	}

	return &HTTPError{StatusCode: resp.StatusCode, Body: body, Message: msg}
}

// StatusCode extracts the status of a wrapped HTTPError.
func StatusCode(err error) (int, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode, true
	}
	return 0, false
}
