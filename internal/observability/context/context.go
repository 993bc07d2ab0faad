package context

import (
	stdcontext "context"
	"strings"
)

type requestIDKey struct{}
type vendorIDKey struct{}
type actorKey struct{}

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithVendorID(ctx stdcontext.Context, vendorID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, vendorIDKey{}, strings.TrimSpace(vendorID))
}

func VendorIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(vendorIDKey{}).(string)
	return value
}

// WithActorRole records the role the upstream gateway asserted for the caller.
func WithActorRole(ctx stdcontext.Context, role string) stdcontext.Context {
	return stdcontext.WithValue(ctx, actorKey{}, strings.TrimSpace(role))
}

func ActorRoleFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(actorKey{}).(string)
	return value
}
