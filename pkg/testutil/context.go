package testutil

import (
	"context"
	"net/http"

	"veriflow/internal/platform/middleware"
	id "veriflow/pkg/domain"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID does not parse, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		ctx := middleware.WithUserID(req.Context(), parsedUserID)
		return req.WithContext(ctx)
	}
	return req
}

// WithRequestID adds a request ID to the request context, as the request ID
// middleware would for an incoming request.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := middleware.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
