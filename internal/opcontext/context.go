package opcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/apperr"
)

// ErrMissingScope is returned by operations that need both a clinic and an
// operator in the request context.
var ErrMissingScope = apperr.Validation("missing_scope", "clinic and operator are required")

// ClinicContextKey is the request context key for the active clinic ID.
type ClinicContextKey struct{}

// OperatorContextKey is the request context key for the authenticated operator ID.
type OperatorContextKey struct{}

// WithClinicID stores the clinic ID in the context.
func WithClinicID(ctx context.Context, clinicID snowflake.ID) context.Context {
	return context.WithValue(ctx, ClinicContextKey{}, clinicID)
}

// WithOperatorID stores the operator ID in the context.
func WithOperatorID(ctx context.Context, operatorID snowflake.ID) context.Context {
	return context.WithValue(ctx, OperatorContextKey{}, operatorID)
}

// ClinicIDFromContext returns the clinic ID from context, if set.
func ClinicIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, ClinicContextKey{})
}

// OperatorIDFromContext returns the operator ID from context, if set.
func OperatorIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, OperatorContextKey{})
}

// Scope returns both identities, failing when either is missing.
func Scope(ctx context.Context) (clinicID, operatorID snowflake.ID, ok bool) {
	clinicID, ok = ClinicIDFromContext(ctx)
	if !ok {
		return 0, 0, false
	}
	operatorID, ok = OperatorIDFromContext(ctx)
	if !ok {
		return 0, 0, false
	}
	return clinicID, operatorID, true
}

func idFromContext(ctx context.Context, key any) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(key).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
