package util

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey = ctxKey("x-request-id")

// WithRequestID returns a context carrying the given request id. An empty id is
// replaced with a freshly generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id from ctx, or the empty string if absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
