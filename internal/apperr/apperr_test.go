package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/bizdir/internal/models"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Email exists", &ProviderError{Code: "EMAIL_EXISTS"}, MsgEmailInUse},
		{"Wrong password", &ProviderError{Code: "INVALID_PASSWORD"}, MsgInvalidCredentials},
		{"Unified credentials code", &ProviderError{Code: "INVALID_LOGIN_CREDENTIALS"}, MsgInvalidCredentials},
		{"Weak password with detail", &ProviderError{Code: "WEAK_PASSWORD : Password should be at least 6 characters"}, MsgWeakPassword},
		{"Wrapped provider error", fmt.Errorf("sign in: %w", &ProviderError{Code: "USER_DISABLED"}), MsgUserDisabled},
		{"Unknown provider code", &ProviderError{Code: "OPERATION_NOT_ALLOWED"}, MsgUnexpectedPrefix + "OPERATION_NOT_ALLOWED"},
		{"Validation", Invalid("title", "required"), MsgInvalidInput},
		{"Not found sentinel", fmt.Errorf("get listing: %w", models.ErrNotFound), MsgNotFound},
		{"Storage object missing", storage.ErrObjectNotExist, MsgNotFound},
		{"Forbidden", models.ErrForbidden, MsgPermissionDenied},
		{"gRPC permission denied", status.Error(codes.PermissionDenied, "missing or insufficient permissions"), MsgPermissionDenied},
		{"gRPC unavailable", status.Error(codes.Unavailable, "transport closing"), MsgNetwork},
		{"gRPC quota", status.Error(codes.ResourceExhausted, "quota"), MsgQuota},
		{"Substring permission", errors.New("rest api: permission denied for resource"), MsgPermissionDenied},
		{"Fallthrough", errors.New("boom"), MsgUnexpectedPrefix + "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Validation", Invalid("price", "must be positive"), http.StatusBadRequest},
		{"Email exists", &ProviderError{Code: "EMAIL_EXISTS"}, http.StatusConflict},
		{"Bad credentials", &ProviderError{Code: "INVALID_LOGIN_CREDENTIALS"}, http.StatusUnauthorized},
		{"Throttled", &ProviderError{Code: "TOO_MANY_ATTEMPTS_TRY_LATER"}, http.StatusTooManyRequests},
		{"Provider outage", &ProviderError{Code: "INTERNAL", HTTPStatus: 503}, http.StatusBadGateway},
		{"Not found", models.ErrNotFound, http.StatusNotFound},
		{"Forbidden", models.ErrForbidden, http.StatusForbidden},
		{"Bad cursor", models.ErrInvalidCursor, http.StatusBadRequest},
		{"gRPC unavailable", status.Error(codes.Unavailable, "down"), http.StatusServiceUnavailable},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "is required", "price": "must be 0 or more"}}
	msg := err.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if strings.Index(msg, "price") > strings.Index(msg, "title") {
		t.Errorf("fields should be sorted: %q", msg)
	}
}
