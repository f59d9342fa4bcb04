package grpcserver

import (
	"context"

	"github.com/and161185/seedvault/internal/service"
)

type ctxKey string

const (
	claimsKey    ctxKey = "sv.claims"
	requestIDKey ctxKey = "sv.requestID"
)

// WithClaims stores the authenticated caller's claims in context.
func WithClaims(ctx context.Context, c service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromCtx fetches the caller's claims from context.
func ClaimsFromCtx(ctx context.Context) (service.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(service.Claims)
	return c, ok
}

// WithRequestID stores the request id in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx fetches the request id, or "" when none was assigned.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
