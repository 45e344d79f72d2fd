package errors

import "fmt"

// ErrorCode represents a Harbor error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrPreviewFailed  ErrorCode = "PREVIEW_FAILED"  // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrUpstream       ErrorCode = "UPSTREAM_ERROR"  // 502
)

// HarborError represents a structured error with code, status, and details.
type HarborError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *HarborError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *HarborError {
	return &HarborError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error when a credential is missing or rejected.
func NewUnauthorized(msg string) *HarborError {
	return &HarborError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a node or tab cannot be found.
func NewNotFound(identifier string) *HarborError {
	return &HarborError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *HarborError {
	return &HarborError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *HarborError {
	return &HarborError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCancelled creates a 499 error when an operation's context is cancelled.
func NewCancelled(operation string) *HarborError {
	return &HarborError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewPreviewFailed creates a 500 error when a preview document cannot be produced.
func NewPreviewFailed(err error) *HarborError {
	msg := "preview generation failed"
	if err != nil {
		msg = fmt.Sprintf("preview generation failed: %v", err)
	}
	return &HarborError{
		Code:    ErrPreviewFailed,
		Status:  500,
		Message: msg,
	}
}

// NewUpstream creates a 502 error for failures reported by a remote service.
func NewUpstream(service string, status int, msg string) *HarborError {
	return &HarborError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("%s error: %s", service, msg),
		Details: map[string]any{"service": service, "upstream_status": status},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *HarborError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &HarborError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a HarborError with the given code.
func Is(err error, code ErrorCode) bool {
	if hErr, ok := err.(*HarborError); ok {
		return hErr.Code == code
	}
	return false
}
