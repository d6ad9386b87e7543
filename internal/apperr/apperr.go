// Package apperr maps platform and validation errors to the short,
// human-readable messages shown to users, and to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

// ValidationError is raised before any network call when client input is invalid.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid returns a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// AsValidation reports whether err carries a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ProviderError is an error code returned by the authentication provider,
// e.g. EMAIL_EXISTS or INVALID_LOGIN_CREDENTIALS.
type ProviderError struct {
	Code       string
	HTTPStatus int
}

func (e *ProviderError) Error() string {
	return "auth provider: " + e.Code
}

const (
	MsgEmailInUse         = "An account with this email already exists."
	MsgInvalidCredentials = "Invalid email or password."
	MsgUserDisabled       = "This account has been disabled. Please contact support."
	MsgTooManyAttempts    = "Too many attempts. Please try again later."
	MsgWeakPassword       = "Password is too weak. Use at least 8 characters with upper and lower case letters and a number."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgSessionExpired     = "Your session has expired. Please sign in again."
	MsgPermissionDenied   = "You don't have permission to perform this action."
	MsgNotFound           = "The requested item was not found."
	MsgNetwork            = "Network error. Please check your connection and try again."
	MsgQuota              = "The service is busy right now. Please try again in a moment."
	MsgInvalidInput       = "Please correct the highlighted fields."
	MsgUnexpectedPrefix   = "An unexpected error occurred: "
)

// providerMessages maps auth provider codes (matched as prefixes, since the
// provider appends detail after " : ") to user messages.
var providerMessages = []struct {
	code string
	msg  string
}{
	{"EMAIL_EXISTS", MsgEmailInUse},
	{"INVALID_LOGIN_CREDENTIALS", MsgInvalidCredentials},
	{"EMAIL_NOT_FOUND", MsgInvalidCredentials},
	{"INVALID_PASSWORD", MsgInvalidCredentials},
	{"USER_DISABLED", MsgUserDisabled},
	{"TOO_MANY_ATTEMPTS_TRY_LATER", MsgTooManyAttempts},
	{"WEAK_PASSWORD", MsgWeakPassword},
	{"INVALID_EMAIL", MsgInvalidEmail},
	{"MISSING_EMAIL", MsgInvalidEmail},
	{"TOKEN_EXPIRED", MsgSessionExpired},
	{"INVALID_REFRESH_TOKEN", MsgSessionExpired},
	{"INVALID_ID_TOKEN", MsgSessionExpired},
	{"USER_NOT_FOUND", MsgSessionExpired},
}

// UserMessage returns the message to show a user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := AsValidation(err); ok {
		return MsgInvalidInput
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		for _, m := range providerMessages {
			if strings.HasPrefix(pe.Code, m.code) {
				return m.msg
			}
		}
		return MsgUnexpectedPrefix + pe.Code
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, storage.ErrObjectNotExist):
		return MsgNotFound
	case errors.Is(err, models.ErrForbidden):
		return MsgPermissionDenied
	case errors.Is(err, models.ErrInvalidCursor):
		return "This page is no longer available. Please reload the list."
	case errors.Is(err, models.ErrOnboardingCompleted):
		return "Your account setup is already complete."
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.PermissionDenied:
			return MsgPermissionDenied
		case codes.Unauthenticated:
			return MsgSessionExpired
		case codes.NotFound:
			return MsgNotFound
		case codes.Unavailable, codes.DeadlineExceeded:
			return MsgNetwork
		case codes.ResourceExhausted:
			return MsgQuota
		}
	}

	// Errors that lost their type on the way (wrapped as strings by SDKs or
	// the REST backend) are matched by substring.
	text := err.Error()
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "permission-denied"):
		return MsgPermissionDenied
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection refused"), strings.Contains(lower, "unavailable"):
		return MsgNetwork
	}
	return fmt.Sprintf("%s%s", MsgUnexpectedPrefix, text)
}

// HTTPStatus returns the response status code for err.
func HTTPStatus(err error) int {
	if _, ok := AsValidation(err); ok {
		return http.StatusBadRequest
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch {
		case strings.HasPrefix(pe.Code, "EMAIL_EXISTS"):
			return http.StatusConflict
		case strings.HasPrefix(pe.Code, "TOO_MANY_ATTEMPTS"):
			return http.StatusTooManyRequests
		case strings.HasPrefix(pe.Code, "USER_DISABLED"):
			return http.StatusForbidden
		case pe.HTTPStatus >= 500:
			return http.StatusBadGateway
		}
		return http.StatusUnauthorized
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, storage.ErrObjectNotExist):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrProfileExists), errors.Is(err, models.ErrOnboardingCompleted):
		return http.StatusConflict
	}

	switch status.Code(err) {
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
