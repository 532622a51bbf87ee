package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler. Server-level middleware runs in front of
// gin so it also covers the h2c upgrade path and streaming responses.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware; the first is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
