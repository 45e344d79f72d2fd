package errors

import (
	"fmt"
	"testing"
)

func TestHarborError_Error(t *testing.T) {
	err := &HarborError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: abc",
	}

	expected := "NOT_FOUND: not found: abc"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *HarborError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("name is required"), ErrInvalidRequest, 400},
		{"unauthorized", NewUnauthorized("token required"), ErrUnauthorized, 401},
		{"not found", NewNotFound("01ABC"), ErrNotFound, 404},
		{"file not found", NewFileNotFound("/tmp/x.zip"), ErrFileNotFound, 404},
		{"conflict", NewConflict("busy"), ErrConflict, 409},
		{"cancelled", NewCancelled("export"), ErrCancelled, 499},
		{"preview failed", NewPreviewFailed(fmt.Errorf("closed")), ErrPreviewFailed, 500},
		{"upstream", NewUpstream("GitHub API", 401, "401 Unauthorized"), ErrUpstream, 502},
		{"internal", NewInternal(fmt.Errorf("boom")), ErrInternal, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestNewNotFound_Details(t *testing.T) {
	err := NewNotFound("src/a.js")
	if err.Details["identifier"] != "src/a.js" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "src/a.js")
	}
}

func TestNewUpstream_Details(t *testing.T) {
	err := NewUpstream("GitHub API", 404, "404 Not Found")
	if err.Message != "GitHub API error: 404 Not Found" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["upstream_status"] != 404 {
		t.Errorf("Details[upstream_status] = %v, want 404", err.Details["upstream_status"])
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	if !Is(NewNotFound("x"), ErrNotFound) {
		t.Error("Is should match NOT_FOUND")
	}
	if Is(NewNotFound("x"), ErrInternal) {
		t.Error("Is should not match a different code")
	}
	if Is(fmt.Errorf("plain"), ErrNotFound) {
		t.Error("Is should not match a plain error")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is should not match nil")
	}
}
