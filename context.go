package auth

import "context"

type ctxKey string

const (
	ctxKeySession   ctxKey = "auth_session"
	ctxKeyRequestID ctxKey = "auth_request_id"
)

// WithSession stores the resolved session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// SessionFromContext extracts the resolved session from the context.
func SessionFromContext(ctx context.Context) *Session {
	v, _ := ctx.Value(ctxKeySession).(*Session)
	return v
}

// WithRequestID stores the backend-call correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext extracts the correlation ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
