// Package shield provides the HTTP middleware of the receiver: permissive
// CORS for in-page callers, request trace IDs with a per-request logger,
// and a JSON body limit.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(1 << 20) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the receiver middleware, ordered:
// CORS → TraceID → MaxBody.
func DefaultStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		CORS(PermissiveCORS()),
		TraceID,
		MaxBody(maxBody),
	}
}
