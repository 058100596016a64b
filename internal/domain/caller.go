package domain

import "context"

type callerContextKey struct{}

// WithCaller returns a context carrying the authenticated caller address.
func WithCaller(ctx context.Context, caller Address) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller address set by the transport layer.
func CallerFromContext(ctx context.Context) (Address, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Address)
	if !ok || caller.IsZero() {
		return "", false
	}
	return caller, true
}
