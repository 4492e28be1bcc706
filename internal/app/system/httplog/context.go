package httplog

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const userSinkKey ctxKey = iota

func contextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, middleware.RequestIDKey, id)
}

func withUserSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, userSinkKey, sink)
}
