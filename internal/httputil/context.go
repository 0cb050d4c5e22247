package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID adds the authenticated user id to the request context
func WithUserID(r *http.Request, uid int64) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, uid)
	return r.WithContext(ctx)
}

// GetUserID retrieves the user id from context, returns 0 if not found
func GetUserID(r *http.Request) int64 {
	uid, _ := r.Context().Value(userIDKey).(int64)
	return uid
}
