package tracing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	obscontext "github.com/smallbiznis/clinicledger/internal/observability/context"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. The span carries the clinic
// and operator the scope middleware resolved and, for failed requests, the
// error kind and code. /health and /metrics are not traced.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("clinicledger/http")
	return func(c *gin.Context) {
		if path := c.Request.URL.Path; path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName(c.Request.Method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		// the scope middleware runs later in the chain and replaces c.Request
		reqCtx := c.Request.Context()
		if requestID := obscontext.RequestIDFromContext(reqCtx); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}
		if clinicID, ok := opcontext.ClinicIDFromContext(reqCtx); ok {
			attrs = append(attrs, attribute.String("clinic_id", clinicID.String()))
		}
		if operatorID, ok := opcontext.OperatorIDFromContext(reqCtx); ok {
			attrs = append(attrs, attribute.String("operator_id", operatorID.String()))
		}

		var lastErr error
		if last := c.Errors.Last(); last != nil {
			lastErr = last.Err
			if kind := apperr.KindOf(lastErr); kind != "" {
				attrs = append(attrs, attribute.String("error.kind", string(kind)))
			}
			if code := apperr.CodeOf(lastErr); code != "" {
				attrs = append(attrs, attribute.String("error.code", code))
			}
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if safeErr := SafeError(lastErr); safeErr != nil {
				span.RecordError(safeErr)
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
