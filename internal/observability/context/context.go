package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/clinicledger/internal/opcontext"
)

type requestIDKey struct{}

// WithRequestID stores the correlation id of the inbound request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func ClinicIDFromContext(ctx context.Context) string {
	id, ok := opcontext.ClinicIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}

func OperatorIDFromContext(ctx context.Context) string {
	id, ok := opcontext.OperatorIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}
