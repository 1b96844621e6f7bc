package api

import (
	"context"
	"time"
)

// QueryTimeout bounds every mongo call made from a handler or the
// reminder job, well under the 30s request timeout
const QueryTimeout = 10 * time.Second

// WithQueryTimeout derives a context that expires after QueryTimeout.
// A nil parent falls back to context.Background.
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

