package errors_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	infraerrors "github.com/nordicstoday/nordics-today/infrastructure/errors"
)

func response(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		body      string
		wantNil   bool
		wantMsg   string
		wantRetry bool
	}{
		{name: "success", code: 200, wantNil: true},
		{name: "message field", code: 422, body: `{"statusCode":422,"name":"validation_error","message":"Invalid from"}`, wantMsg: "Invalid from"},
		{name: "error string", code: 401, body: `{"error":"bad key"}`, wantMsg: "bad key"},
		{name: "nested error", code: 500, body: `{"error":{"message":"overloaded"}}`, wantMsg: "overloaded", wantRetry: true},
		{name: "plain text", code: 502, body: "bad gateway", wantMsg: "bad gateway", wantRetry: true},
		{name: "rate limited", code: 429, body: "", wantRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := infraerrors.ParseHTTPError(response(tt.code, tt.body))
			if tt.wantNil {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				return
			}
			he, ok := err.(*infraerrors.HTTPError)
			if !ok {
				t.Fatalf("err = %T, want *HTTPError", err)
			}
			if he.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", he.Message, tt.wantMsg)
			}
			if he.Temporary() != tt.wantRetry {
				t.Errorf("Temporary() = %v, want %v", he.Temporary(), tt.wantRetry)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("send batch: %w", &infraerrors.HTTPError{StatusCode: 410})
	if code, ok := infraerrors.StatusCode(wrapped); !ok || code != 410 {
		t.Errorf("StatusCode = %d, %v", code, ok)
	}
	if _, ok := infraerrors.StatusCode(fmt.Errorf("x")); ok {
		t.Error("plain error reported a status")
	}
}
