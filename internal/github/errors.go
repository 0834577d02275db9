package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a failed API call.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindTransient   Kind = "transient"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindNotFound    Kind = "not_found"
	KindValidation  Kind = "validation"
	KindTimeout     Kind = "timeout"
)

// Sentinels matched by errors.Is against an *APIError of the same kind.
var (
	ErrTransient   = errors.New("github: transient failure")
	ErrAuth        = errors.New("github: authentication failed")
	ErrRateLimited = errors.New("github: rate limited")
	ErrNotFound    = errors.New("github: not found")
	ErrValidation  = errors.New("github: validation failed")
	ErrTimeout     = errors.New("github: timeout")
)

// APIError describes a failed request.
type APIError struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	var parts []string
	if e.Method != "" || e.Path != "" {
		head := strings.TrimSpace("github " + e.Method + " " + e.Path)
		if e.Status > 0 {
			head += fmt.Sprintf(" returned status %d", e.Status)
		}
		parts = append(parts, head)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "github: " + string(e.Kind) + " error"
	}
	return strings.Join(parts, ": ")
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *APIError) Is(target error) bool {
	s := sentinelFor(e.Kind)
	return s != nil && s == target
}

func sentinelFor(kind Kind) error {
	switch kind {
	case KindTransient:
		return ErrTransient
	case KindAuth:
		return ErrAuth
	case KindRateLimited:
		return ErrRateLimited
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindTimeout:
		return ErrTimeout
	}
	return nil
}

// KindOf returns the classification of err, or KindUnknown when err did not
// come from the client.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth another attempt later.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindRateLimited, KindTimeout:
		return true
	}
	return false
}

func classifyStatus(status int, header http.Header, message string) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		if isRateLimited(header, message) {
			return KindRateLimited
		}
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindTransient
	}
	return KindUnknown
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransient
}

func isRateLimited(header http.Header, message string) bool {
	if header != nil && header.Get(headerRateRemaining) == "0" {
		return true
	}
	return strings.Contains(strings.ToLower(message), "rate limit")
}

// Message turns err into text suitable for a dialog or status line.
func Message(err error, operation string) string {
	if err == nil {
		return ""
	}
	var text string
	switch KindOf(err) {
	case KindAuth:
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
			text = "Access denied. You may not have permission for this operation."
		} else {
			text = "Authentication failed. Please check your GitHub token."
		}
	case KindRateLimited:
		text = "GitHub API rate limit exceeded. Please try again later."
	case KindNotFound:
		text = "Resource not found. The repository or file may not exist."
	case KindValidation:
		text = "Invalid request. Please check your input and try again."
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			text += " (" + apiErr.Message + ")"
		}
	case KindTimeout:
		text = "Request timed out. Please check your internet connection."
	case KindTransient:
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 500 {
			text = "GitHub server error. Please try again later."
		} else {
			text = "Network connection error. Please check your internet connection."
		}
	default:
		text = "An unexpected error occurred: " + err.Error()
	}
	if operation == "" {
		return text
	}
	return text + "\nOperation: " + operation
}
