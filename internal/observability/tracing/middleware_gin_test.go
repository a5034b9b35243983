package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/smallbiznis/clinicledger/internal/opcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func newTracedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.Use(func(c *gin.Context) {
		ctx := opcontext.WithClinicID(c.Request.Context(), 10)
		c.Request = c.Request.WithContext(opcontext.WithOperatorID(ctx, 7))
		c.Next()
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/receipts", func(c *gin.Context) {
		_ = c.Error(apperr.Conflict("installment_concurrent_update", "installment changed"))
		c.Status(http.StatusConflict)
	})
	r.GET("/api/cash-registers/:id/summary", func(c *gin.Context) {
		_ = c.Error(apperr.Persistence("load cash register", assert.AnError))
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareTagsScopeAndErrorCode(t *testing.T) {
	recorder := recordSpans(t)
	r := newTracedEngine()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/receipts", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/receipts", span.Name())

	got := attrs(span)
	assert.Equal(t, "10", got["clinic_id"].AsString())
	assert.Equal(t, "7", got["operator_id"].AsString())
	assert.Equal(t, int64(http.StatusConflict), got["http.status_code"].AsInt64())
	assert.Equal(t, string(apperr.KindConflict), got["error.kind"].AsString())
	assert.Equal(t, "installment_concurrent_update", got["error.code"].AsString())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	recorder := recordSpans(t)
	r := newTracedEngine()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cash-registers/42/summary", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/cash-registers/:id/summary", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)
}

func TestGinMiddlewareSkipsHealth(t *testing.T) {
	recorder := recordSpans(t)
	r := newTracedEngine()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, recorder.Ended())
}
